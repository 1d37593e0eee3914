package handler

import (
	"bytes"
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/skul-exams-api/internal/models"
	"github.com/noah-isme/skul-exams-api/internal/service"
	appErrors "github.com/noah-isme/skul-exams-api/pkg/errors"
)

type stubResultRepo struct {
	createErr error
	stored    []models.ExamResult
}

func (s *stubResultRepo) Create(ctx context.Context, result *models.ExamResult) error {
	if s.createErr != nil {
		return s.createErr
	}
	result.ID = "res-1"
	s.stored = append(s.stored, *result)
	return nil
}

func (s *stubResultRepo) Update(ctx context.Context, result *models.ExamResult) error { return nil }
func (s *stubResultRepo) BulkUpsert(ctx context.Context, results []models.ExamResult) error {
	s.stored = append(s.stored, results...)
	return nil
}

func (s *stubResultRepo) FindByID(ctx context.Context, id string) (*models.ExamResult, error) {
	return nil, sql.ErrNoRows
}

func (s *stubResultRepo) List(ctx context.Context, filter models.ExamResultFilter) ([]models.ExamResult, error) {
	return s.stored, nil
}

func (s *stubResultRepo) ListBySubject(ctx context.Context, examSubjectID string) ([]models.ExamResult, error) {
	return s.stored, nil
}

type stubSubjectReader struct{}

func (s *stubSubjectReader) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	return &models.Exam{ID: id, GradingSystemID: "gs1"}, nil
}

func (s *stubSubjectReader) FindSubject(ctx context.Context, id string) (*models.ExamSubject, error) {
	return &models.ExamSubject{ID: id, ExamID: "exam1", MaxScore: 100, PassScore: float(50), Weight: 1}, nil
}

type stubRangesReader struct{}

func (s *stubRangesReader) FindByID(ctx context.Context, id string) (*models.GradingSystem, error) {
	return &models.GradingSystem{ID: id, Ranges: []models.GradeRange{
		{MinScore: 80, MaxScore: 100, Grade: "A"},
		{MinScore: 0, MaxScore: 79.99, Grade: "B"},
	}}, nil
}

func buildResultRouter(repo *stubResultRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewResultService(repo, &stubSubjectReader{}, &stubRangesReader{}, nil, nil)
	handler := NewExamResultHandler(svc)

	router := gin.New()
	router.POST("/exam-results", handler.Create)
	router.GET("/exam-subjects/:id/statistics", handler.SubjectStatistics)
	return router
}

func TestCreateResultReturnsCreated(t *testing.T) {
	router := buildResultRouter(&stubResultRepo{})

	body := bytes.NewBufferString(`{"exam_subject_id":"es1","student_id":"stu1","score":85}`)
	req, _ := http.NewRequest(http.MethodPost, "/exam-results", body)
	req.Header.Set("Content-Type", "application/json")

	resp := performRequest(router, req)
	require.Equal(t, http.StatusCreated, resp.Code)
	require.Contains(t, resp.Body.String(), `"grade":"A"`)
}

func TestCreateResultDuplicateConflict(t *testing.T) {
	repo := &stubResultRepo{createErr: appErrors.Clone(appErrors.ErrDuplicateEntry, "a result for this student and subject already exists")}
	router := buildResultRouter(repo)

	body := bytes.NewBufferString(`{"exam_subject_id":"es1","student_id":"stu1","score":85}`)
	req, _ := http.NewRequest(http.MethodPost, "/exam-results", body)
	req.Header.Set("Content-Type", "application/json")

	resp := performRequest(router, req)
	require.Equal(t, http.StatusConflict, resp.Code)
	require.Contains(t, resp.Body.String(), "DUPLICATE_ENTRY")
}

func TestCreateResultScoreAboveMaxRejected(t *testing.T) {
	router := buildResultRouter(&stubResultRepo{})

	body := bytes.NewBufferString(`{"exam_subject_id":"es1","student_id":"stu1","score":120}`)
	req, _ := http.NewRequest(http.MethodPost, "/exam-results", body)
	req.Header.Set("Content-Type", "application/json")

	resp := performRequest(router, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Contains(t, resp.Body.String(), "VALIDATION_ERROR")
}

func TestSubjectStatisticsEndpoint(t *testing.T) {
	repo := &stubResultRepo{stored: []models.ExamResult{
		{ExamSubjectID: "es1", StudentID: "stu1", Score: float(80)},
		{ExamSubjectID: "es1", StudentID: "stu2", Score: float(40)},
	}}
	router := buildResultRouter(repo)

	req, _ := http.NewRequest(http.MethodGet, "/exam-subjects/es1/statistics", nil)
	resp := performRequest(router, req)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), `"average_score":60`)
	require.Contains(t, resp.Body.String(), `"pass_rate":50`)
}
