package integration_test

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/edukita-dev/edukita-api/internal/config"
	"github.com/edukita-dev/edukita-api/internal/dto"
	"github.com/edukita-dev/edukita-api/internal/handler"
	"github.com/edukita-dev/edukita-api/internal/middleware"
	"github.com/edukita-dev/edukita-api/internal/models"
	"github.com/edukita-dev/edukita-api/internal/repository"
	"github.com/edukita-dev/edukita-api/internal/router"
	"github.com/edukita-dev/edukita-api/internal/service"
)

func setupAccessCodeApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Course{},
		&models.AccessCode{},
		&models.CourseEnrollment{},
		&models.CourseProgress{},
		&models.Notification{},
	))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	codeRepo := repository.NewAccessCodeRepository(db)
	courseRepo := repository.NewCourseRepository(db)

	generator := service.NewCodeGenerator(rand.New(rand.NewSource(99)))
	issuer := service.NewCodeIssuer(generator, codeRepo, logger)
	redeemer := service.NewRedemptionService(repository.NewUnitOfWork(db), logger)

	accessCodeService := service.NewAccessCodeService(service.AccessCodeServiceConfig{
		Codes:     codeRepo,
		Courses:   courseRepo,
		Issuer:    issuer,
		Redeemer:  redeemer,
		Validator: validate,
		Logger:    logger,
	})

	accessCodeHandler := handler.NewAccessCodeHandler(accessCodeService, logger)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})

	cfg := config.Config{
		AppName:          "Test",
		JWTSecret:        "secret",
		RedeemRateLimit:  100,
		RedeemRateWindow: time.Minute,
	}
	router.Register(app, cfg, router.Dependencies{
		AccessCodeHandler: accessCodeHandler,
		JWTMiddleware: func(c *fiber.Ctx) error {
			c.Locals("user_id", c.Get("X-Test-User"))
			c.Locals("user_role", c.Get("X-Test-Role"))
			return c.Next()
		},
	})

	return app, db
}

func doRequest(t *testing.T, app *fiber.App, method, path, user, role string, body string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Test-User", user)
	req.Header.Set("X-Test-Role", role)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeData[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var body struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	var data T
	require.NoError(t, json.Unmarshal(body.Data, &data))
	return data
}

func TestAccessCodeLifecycleEndToEnd(t *testing.T) {
	app, db := setupAccessCodeApp(t)

	course := models.Course{Title: "Operating Systems"}
	require.NoError(t, db.Create(&course).Error)

	// Step 1: admin bulk-generates a batch of codes.
	res := doRequest(t, app, http.MethodPost,
		fmt.Sprintf("/api/v1/courses/%d/bulk-generate-codes", course.ID),
		"A1", "admin", `{"quantity":5}`)
	require.Equal(t, fiber.StatusCreated, res.StatusCode)

	bulk := decodeData[dto.BulkGenerateResponse](t, res)
	require.Equal(t, 5, bulk.Generated)
	require.Len(t, bulk.Codes, 5)

	// Step 2: a teacher issues a single code.
	res = doRequest(t, app, http.MethodPost,
		fmt.Sprintf("/api/v1/access-codes/generate?courseId=%d", course.ID),
		"T1", "teacher", "")
	require.Equal(t, fiber.StatusCreated, res.StatusCode)

	single := decodeData[dto.AccessCodeResponse](t, res)
	require.Len(t, single.Code, service.CodeLength)

	// Step 3: a student redeems the teacher's code.
	res = doRequest(t, app, http.MethodPost,
		fmt.Sprintf("/api/v1/access-codes/redeem?code=%s&courseId=%d", single.Code, course.ID),
		"S1", "student", "")
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	redeemed := decodeData[dto.RedeemResponse](t, res)
	require.True(t, redeemed.Redeemed)

	var enrollments int64
	require.NoError(t, db.Model(&models.CourseEnrollment{}).
		Where("student_id = ? AND course_id = ?", "S1", course.ID).
		Count(&enrollments).Error)
	require.Equal(t, int64(1), enrollments)

	// Step 4: a second student hitting the same code gets a conflict.
	res = doRequest(t, app, http.MethodPost,
		fmt.Sprintf("/api/v1/access-codes/redeem?code=%s&courseId=%d", single.Code, course.ID),
		"S2", "student", "")
	require.Equal(t, fiber.StatusConflict, res.StatusCode)

	rejected := decodeData[dto.RedeemResponse](t, res)
	require.False(t, rejected.Redeemed)
	require.Equal(t, service.ReasonAlreadyUsed, rejected.Reason)

	// Step 5: admin disables one of the bulk codes.
	target := bulk.Codes[0].Code
	res = doRequest(t, app, http.MethodPost,
		"/api/v1/access-codes/"+target+"/disable",
		"A1", "admin", "")
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	res.Body.Close()

	res = doRequest(t, app, http.MethodGet,
		"/api/v1/access-codes/"+target+"/stats",
		"T1", "teacher", "")
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	stats := decodeData[dto.AccessCodeStatsResponse](t, res)
	require.Equal(t, service.StatusDisabled, stats.Status)
	require.False(t, stats.IsValid)

	// Step 6: the disabled code disappears from the active listing.
	res = doRequest(t, app, http.MethodGet,
		fmt.Sprintf("/api/v1/access-codes/course/%d/active", course.ID),
		"T1", "teacher", "")
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	active := decodeData[[]dto.AccessCodeResponse](t, res)
	require.Len(t, active, 4, "five issued minus one disabled; the single code is used")
	for _, code := range active {
		require.NotEqual(t, target, code.Code)
		require.NotEqual(t, single.Code, code.Code)
	}
}

func TestAccessCodeRoutesEnforceRoles(t *testing.T) {
	app, db := setupAccessCodeApp(t)

	course := models.Course{Title: "Networking"}
	require.NoError(t, db.Create(&course).Error)

	// Students cannot mint codes.
	res := doRequest(t, app, http.MethodPost,
		fmt.Sprintf("/api/v1/courses/%d/bulk-generate-codes", course.ID),
		"S1", "student", `{"quantity":5}`)
	require.Equal(t, fiber.StatusForbidden, res.StatusCode)

	res = doRequest(t, app, http.MethodPost,
		fmt.Sprintf("/api/v1/access-codes/generate?courseId=%d", course.ID),
		"S1", "student", "")
	require.Equal(t, fiber.StatusForbidden, res.StatusCode)

	// Teachers can issue but cannot disable; revocation is admin-only.
	res = doRequest(t, app, http.MethodPost,
		fmt.Sprintf("/api/v1/access-codes/generate?courseId=%d", course.ID),
		"T1", "teacher", "")
	require.Equal(t, fiber.StatusCreated, res.StatusCode)

	code := decodeData[dto.AccessCodeResponse](t, res)

	res = doRequest(t, app, http.MethodPost,
		"/api/v1/access-codes/"+code.Code+"/disable",
		"T1", "teacher", "")
	require.Equal(t, fiber.StatusForbidden, res.StatusCode)

	// Staff cannot redeem; enrollment is a student action.
	res = doRequest(t, app, http.MethodPost,
		fmt.Sprintf("/api/v1/access-codes/redeem?code=%s&courseId=%d", code.Code, course.ID),
		"T1", "teacher", "")
	require.Equal(t, fiber.StatusForbidden, res.StatusCode)

	var count int64
	require.NoError(t, db.Model(&models.AccessCode{}).Where("is_used = ?", true).Count(&count).Error)
	require.Zero(t, count)
}
