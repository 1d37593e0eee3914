package handler

import (
	"bytes"
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/skul-exams-api/internal/middleware"
	"github.com/noah-isme/skul-exams-api/internal/models"
	"github.com/noah-isme/skul-exams-api/internal/service"
)

type stubRuleRepo struct {
	rules []models.ConsolidationRule
}

func (s *stubRuleRepo) ListBySchool(ctx context.Context, schoolID string) ([]models.ConsolidationRule, error) {
	return s.rules, nil
}

func (s *stubRuleRepo) ListActiveBySchool(ctx context.Context, schoolID string) ([]models.ConsolidationRule, error) {
	var active []models.ConsolidationRule
	for _, rule := range s.rules {
		if rule.IsActive {
			active = append(active, rule)
		}
	}
	return active, nil
}

func (s *stubRuleRepo) Create(ctx context.Context, rule *models.ConsolidationRule) error { return nil }
func (s *stubRuleRepo) Update(ctx context.Context, rule *models.ConsolidationRule) error { return nil }

type stubConsolidatedRepo struct {
	written int
}

func (s *stubConsolidatedRepo) UpsertAll(ctx context.Context, reports []models.ConsolidatedReport) error {
	s.written += len(reports)
	return nil
}

func (s *stubConsolidatedRepo) List(ctx context.Context, filter models.ConsolidatedReportFilter) ([]models.ConsolidatedReport, int, error) {
	return nil, 0, nil
}

func (s *stubConsolidatedRepo) SetPublished(ctx context.Context, id string, published bool) error {
	return nil
}

type stubExamFinder struct {
	exams map[string]*models.Exam
}

func (s *stubExamFinder) FindPublishedByTypeForClass(ctx context.Context, classID, examTypeID, term, academicYear string) (*models.Exam, error) {
	if exam, ok := s.exams[examTypeID]; ok {
		return exam, nil
	}
	return nil, sql.ErrNoRows
}

type stubResultsReader struct {
	byExam map[string][]models.ExamResult
}

func (s *stubResultsReader) ListByExam(ctx context.Context, examID string) ([]models.ExamResult, error) {
	return s.byExam[examID], nil
}

type stubRoster struct {
	students []models.Student
}

func (s *stubRoster) ListActiveBySchool(ctx context.Context, schoolID string) ([]models.Student, error) {
	return s.students, nil
}

type stubDefaultGrading struct {
	system *models.GradingSystem
}

func (s *stubDefaultGrading) FindDefaultBySchool(ctx context.Context, schoolID string) (*models.GradingSystem, error) {
	if s.system == nil {
		return nil, sql.ErrNoRows
	}
	return s.system, nil
}

func float(v float64) *float64 { return &v }

func buildConsolidationRouter(weights []float64) (*gin.Engine, *stubConsolidatedRepo) {
	gin.SetMode(gin.TestMode)

	rules := &stubRuleRepo{}
	types := []string{"opener", "midterm", "endterm"}
	for i, w := range weights {
		rules.rules = append(rules.rules, models.ConsolidationRule{
			ID: types[i], ExamTypeID: types[i], ExamTypeName: types[i], Weight: w, IsActive: true,
		})
	}

	reports := &stubConsolidatedRepo{}
	svc := service.NewConsolidationService(
		rules,
		reports,
		&stubExamFinder{exams: map[string]*models.Exam{
			"opener":  {ID: "e1", ClassID: "class1"},
			"midterm": {ID: "e2", ClassID: "class1"},
			"endterm": {ID: "e3", ClassID: "class1"},
		}},
		&stubResultsReader{byExam: map[string][]models.ExamResult{
			"e1": {{ExamSubjectID: "s1", StudentID: "stu1", Score: float(70)}},
			"e2": {{ExamSubjectID: "s1", StudentID: "stu1", Score: float(75)}},
			"e3": {{ExamSubjectID: "s1", StudentID: "stu1", Score: float(80)}},
		}},
		&stubRoster{students: []models.Student{{ID: "stu1", SchoolID: "school1", ClassID: "class1"}}},
		&stubDefaultGrading{system: &models.GradingSystem{ID: "gs1", Ranges: []models.GradeRange{
			{MinScore: 0, MaxScore: 100, Grade: "PASS"},
		}}},
		nil, nil, nil, nil,
	)

	handler := NewConsolidatedReportHandler(svc)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if c.GetHeader("X-Test-School") != "" {
			c.Set(middleware.ContextUserKey, &models.JWTClaims{
				UserID:   "user-1",
				Role:     models.RoleAdmin,
				SchoolID: c.GetHeader("X-Test-School"),
			})
		}
		c.Next()
	})
	router.POST("/consolidated-reports/generate", handler.Generate)
	router.GET("/consolidated-reports", handler.List)
	return router, reports
}

func performRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestGenerateConsolidatedReports(t *testing.T) {
	router, reports := buildConsolidationRouter([]float64{20, 20, 60})

	body := bytes.NewBufferString(`{"term":"Term 1","academic_year":"2026"}`)
	req, _ := http.NewRequest(http.MethodPost, "/consolidated-reports/generate", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-School", "school1")

	resp := performRequest(router, req)
	require.Equal(t, http.StatusCreated, resp.Code)
	require.Contains(t, resp.Body.String(), `"count":1`)
	require.Equal(t, 1, reports.written)
}

func TestGenerateConsolidatedReportsWeightMismatch(t *testing.T) {
	router, reports := buildConsolidationRouter([]float64{20, 20, 50})

	body := bytes.NewBufferString(`{"term":"Term 1","academic_year":"2026"}`)
	req, _ := http.NewRequest(http.MethodPost, "/consolidated-reports/generate", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-School", "school1")

	resp := performRequest(router, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Contains(t, resp.Body.String(), "WEIGHT_MISMATCH")
	require.Equal(t, 0, reports.written)
}

func TestGenerateConsolidatedReportsRequiresSchoolScope(t *testing.T) {
	router, _ := buildConsolidationRouter([]float64{20, 20, 60})

	body := bytes.NewBufferString(`{"term":"Term 1","academic_year":"2026"}`)
	req, _ := http.NewRequest(http.MethodPost, "/consolidated-reports/generate", body)
	req.Header.Set("Content-Type", "application/json")

	resp := performRequest(router, req)
	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestGenerateConsolidatedReportsInvalidPayload(t *testing.T) {
	router, _ := buildConsolidationRouter([]float64{20, 20, 60})

	body := bytes.NewBufferString(`{"term":"Term 1"}`)
	req, _ := http.NewRequest(http.MethodPost, "/consolidated-reports/generate", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-School", "school1")

	resp := performRequest(router, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}
