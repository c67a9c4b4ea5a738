package api

import (
	"alcyxob/health-tracker/internal/catalog"
	"alcyxob/health-tracker/internal/domain"
	"alcyxob/health-tracker/internal/metrics"
	"alcyxob/health-tracker/internal/repository/memory"
	"alcyxob/health-tracker/internal/service"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/goleak"
)

const testSecret = "test-secret"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m)
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	repos  service.Repositories
	userID primitive.ObjectID
	token  string
}

func newTestServer(t *testing.T) *testServer {
	store := memory.NewStore()
	repos := service.Repositories{
		Templates:     store.Templates(),
		Weeks:         store.Weeks(),
		Days:          store.Days(),
		Prescriptions: store.Prescriptions(),
		Instances:     store.Instances(),
		Progress:      store.Progress(),
		Exercises:     store.Exercises(),
		Tx:            store.Transactor(),
	}
	_, err := catalog.NewSeeder(repos).SeedFile(context.Background(), "../../configs/catalog.yaml")
	require.NoError(t, err)

	metricsManager, registry := metrics.NewTestManagerAndRegistry()
	reconciler := service.NewReconciler(repos, service.WithMetrics(metricsManager))

	router := gin.New()
	SetupRoutes(router, testSecret, Services{
		Plans:    service.NewPlanService(repos),
		Schedule: service.NewScheduleService(repos, reconciler, metricsManager),
		Progress: service.NewProgressService(repos),
		Cleaner:  reconciler,
	}, registry)

	userID := primitive.NewObjectID()
	return &testServer{
		t:      t,
		router: router,
		repos:  repos,
		userID: userID,
		token:  signToken(t, userID.Hex(), domain.RoleUser, time.Hour),
	}
}

func signToken(t *testing.T, uid string, role domain.Role, ttl time.Duration) string {
	claims := jwtClaims{
		UserID: uid,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// startDefaultPlan gives the test user the seeded beginner strength plan.
func (s *testServer) startDefaultPlan() domain.UserPlanInstance {
	w := s.do(http.MethodPost, "/api/v1/plans/default", s.token, CreateDefaultPlanRequest{
		Goal:            "strength",
		ExperienceLevel: "beginner",
		DaysPerWeek:     3,
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[domain.UserPlanInstance](s.t, w)
}

func TestPing(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())
}

func TestAuthMiddleware(t *testing.T) {
	s := newTestServer(t)

	for caseName, tc := range map[string]struct {
		header string
	}{
		"missing header":   {header: ""},
		"wrong scheme":     {header: "Token " + s.token},
		"garbage token":    {header: "Bearer not-a-jwt"},
		"expired token":    {header: "Bearer " + signToken(t, s.userID.Hex(), domain.RoleUser, -time.Minute)},
		"non hex user id":  {header: "Bearer " + signToken(t, "user-1", domain.RoleUser, time.Hour)},
		"wrong secret key": {header: "Bearer " + func() string {
			signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
				UserID:           s.userID.Hex(),
				Role:             domain.RoleUser,
				RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
			}).SignedString([]byte("other"))
			require.NoError(t, err)
			return signed
		}()},
	} {
		t.Run(caseName, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/plans/schedule", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			s.router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestQueriesWithoutActivePlan(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/v1/plans/active", "/api/v1/plans/schedule", "/api/v1/plans/today", "/api/v1/plans/editor"} {
		w := s.do(http.MethodGet, path, s.token, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "null", w.Body.String(), path)
	}

	w := s.do(http.MethodGet, "/api/v1/plans/adherence", s.token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.Adherence{}, decode[service.Adherence](t, w))
}

func TestAssignTemplate(t *testing.T) {
	s := newTestServer(t)
	template, err := s.repos.Templates.GetByName(context.Background(), "Upper Lower Hypertrophy")
	require.NoError(t, err)

	w := s.do(http.MethodPost, "/api/v1/plans/assign", s.token, AssignTemplateRequest{TemplateID: "zzz"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/v1/plans/assign", s.token, AssignTemplateRequest{TemplateID: primitive.NewObjectID().Hex()})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/api/v1/plans/assign", s.token, AssignTemplateRequest{TemplateID: template.ID.Hex()})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	instance := decode[domain.UserPlanInstance](t, w)
	assert.Equal(t, template.ID, instance.PlanTemplateID)
	assert.Equal(t, s.userID, instance.UserID)
	assert.Equal(t, domain.PlanStatusActive, instance.Status)
}

func TestCreateDefaultPlan(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/v1/plans/default", s.token, CreateDefaultPlanRequest{
		Goal:            "endurance",
		ExperienceLevel: "advanced",
		DaysPerWeek:     6,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = s.do(http.MethodPost, "/api/v1/plans/default", s.token, CreateDefaultPlanRequest{
		Goal:            "strength",
		ExperienceLevel: "beginner",
		DaysPerWeek:     9,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	instance := s.startDefaultPlan()
	w = s.do(http.MethodGet, "/api/v1/plans/active", s.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	active := decode[service.ActivePlan](t, w)
	assert.Equal(t, instance.ID, active.Instance.ID)
	assert.Equal(t, 1, active.CurrentWeek)
}

func TestScheduleAndProgress(t *testing.T) {
	s := newTestServer(t)
	s.startDefaultPlan()

	w := s.do(http.MethodGet, "/api/v1/plans/schedule", s.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	schedule := decode[service.WeekSchedule](t, w)
	require.Len(t, schedule.Days, service.DaysInWeek)
	monday := schedule.Days[1]
	require.True(t, monday.Exists)
	require.NotNil(t, monday.ProgressID)
	assert.Equal(t, "Back Squat", monday.Exercises[0].Name)
	assert.True(t, schedule.Days[0].IsRest)

	w = s.do(http.MethodGet, "/api/v1/plans/today", s.token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	progressPath := "/api/v1/plans/progress/" + monday.ProgressID.Hex()
	w = s.do(http.MethodPost, progressPath+"/complete", s.token, map[string]string{"progressionDecision": "double"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, progressPath+"/complete", s.token, map[string]string{
		"workoutId":           primitive.NewObjectID().Hex(),
		"progressionDecision": "hold",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	row := decode[domain.UserPlanDayProgress](t, w)
	assert.Equal(t, domain.ProgressCompleted, row.Status)

	other := signToken(t, primitive.NewObjectID().Hex(), domain.RoleUser, time.Hour)
	w = s.do(http.MethodPost, progressPath+"/skip", other, SkipDayRequest{})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/api/v1/plans/progress/"+schedule.Days[3].ProgressID.Hex()+"/skip", s.token, map[string]string{"reason": "travel"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/v1/plans/adherence", s.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	adherence := decode[service.Adherence](t, w)
	assert.Equal(t, 1, adherence.CompletedCount)
	assert.Equal(t, 1, adherence.SkippedCount)
	assert.Positive(t, adherence.PlannedCount)
}

func TestUpsertWeekDay(t *testing.T) {
	s := newTestServer(t)
	instance := s.startDefaultPlan()
	weeks, err := s.repos.Weeks.ListByTemplate(context.Background(), instance.PlanTemplateID)
	require.NoError(t, err)
	path := "/api/v1/plans/weeks/" + weeks[0].ID.Hex() + "/days/6"
	body := UpsertWeekDayRequest{TemplateID: instance.PlanTemplateID.Hex(), Focus: "Mobility"}

	w := s.do(http.MethodPut, path, s.token, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := decode[service.UpsertWeekDayResult](t, w)
	assert.True(t, first.Created)

	w = s.do(http.MethodPut, path, s.token, body)
	require.Equal(t, http.StatusOK, w.Code)
	second := decode[service.UpsertWeekDayResult](t, w)
	assert.False(t, second.Created)
	assert.Equal(t, first.PlanDayID, second.PlanDayID)

	w = s.do(http.MethodPut, "/api/v1/plans/weeks/"+weeks[0].ID.Hex()+"/days/saturday", s.token, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPut, "/api/v1/plans/weeks/"+weeks[0].ID.Hex()+"/days/9", s.token, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPut, "/api/v1/plans/weeks/"+primitive.NewObjectID().Hex()+"/days/2", s.token, body)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPrescriptionEditing(t *testing.T) {
	s := newTestServer(t)
	s.startDefaultPlan()
	schedule := decode[service.WeekSchedule](t, s.do(http.MethodGet, "/api/v1/plans/schedule", s.token, nil))
	monday := schedule.Days[1]
	require.Len(t, monday.Exercises, 2)
	dayPath := "/api/v1/plans/days/" + monday.PlanDayID.Hex()

	libraryID := monday.Exercises[1].ExerciseLibraryID.Hex()
	w := s.do(http.MethodPost, dayPath+"/exercises", s.token, AddExerciseRequest{
		ExerciseLibraryID: &libraryID,
		TargetSets:        2,
		TargetReps:        "12",
		RestSeconds:       60,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	added := decode[domain.PlanPrescription](t, w)
	assert.Equal(t, 3, added.Order)

	w = s.do(http.MethodPost, dayPath+"/exercises", s.token, AddExerciseRequest{TargetSets: 2})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPut, dayPath+"/exercises/order", s.token, ReorderPrescriptionsRequest{
		PrescriptionIDs: []string{added.ID.Hex()},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	reordered := decode[[]domain.PlanPrescription](t, w)
	require.Len(t, reordered, 3)
	assert.Equal(t, added.ID, reordered[0].ID)
	assert.Equal(t, monday.Exercises[0].PrescriptionID, reordered[1].ID)

	w = s.do(http.MethodDelete, "/api/v1/plans/prescriptions/"+added.ID.Hex(), s.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.RemovePrescriptionResult{Success: true}, decode[service.RemovePrescriptionResult](t, w))

	w = s.do(http.MethodDelete, "/api/v1/plans/prescriptions/"+added.ID.Hex(), s.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[service.RemovePrescriptionResult](t, w).AlreadyDeleted)
}

func TestAdminCleanup(t *testing.T) {
	s := newTestServer(t)
	admin := signToken(t, primitive.NewObjectID().Hex(), domain.RoleAdmin, time.Hour)

	w := s.do(http.MethodPost, "/api/v1/admin/plan-days/cleanup", s.token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/api/v1/admin/plan-days/cleanup?dryRun=maybe", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/v1/admin/plan-days/cleanup", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	report := decode[service.CleanupReport](t, w)
	assert.True(t, report.DryRun)
	assert.Zero(t, report.DuplicateGroups)

	w = s.do(http.MethodPost, "/api/v1/admin/plan-days/cleanup?dryRun=false", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[service.CleanupReport](t, w).DryRun)

	w = s.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `health_tracker_plans_cleanup_runs_total{dry_run="true"} 1`)
	assert.Contains(t, w.Body.String(), `health_tracker_plans_cleanup_runs_total{dry_run="false"} 1`)
}
