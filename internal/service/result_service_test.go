package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/skul-exams-api/internal/models"
	appErrors "github.com/noah-isme/skul-exams-api/pkg/errors"
)

type mockResultRepo struct {
	stored    map[string]models.ExamResult
	createErr error
}

func (m *mockResultRepo) key(r *models.ExamResult) string {
	return r.ExamSubjectID + "/" + r.StudentID
}

func (m *mockResultRepo) Create(ctx context.Context, result *models.ExamResult) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.stored == nil {
		m.stored = make(map[string]models.ExamResult)
	}
	result.ID = "res-" + result.StudentID
	m.stored[m.key(result)] = *result
	return nil
}

func (m *mockResultRepo) Update(ctx context.Context, result *models.ExamResult) error {
	m.stored[m.key(result)] = *result
	return nil
}

func (m *mockResultRepo) BulkUpsert(ctx context.Context, results []models.ExamResult) error {
	if m.stored == nil {
		m.stored = make(map[string]models.ExamResult)
	}
	for i := range results {
		m.stored[m.key(&results[i])] = results[i]
	}
	return nil
}

func (m *mockResultRepo) FindByID(ctx context.Context, id string) (*models.ExamResult, error) {
	for _, r := range m.stored {
		if r.ID == id {
			copied := r
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockResultRepo) List(ctx context.Context, filter models.ExamResultFilter) ([]models.ExamResult, error) {
	var result []models.ExamResult
	for _, r := range m.stored {
		if filter.ExamSubjectID != "" && filter.ExamSubjectID != r.ExamSubjectID {
			continue
		}
		if filter.StudentID != "" && filter.StudentID != r.StudentID {
			continue
		}
		result = append(result, r)
	}
	return result, nil
}

func (m *mockResultRepo) ListBySubject(ctx context.Context, examSubjectID string) ([]models.ExamResult, error) {
	return m.List(ctx, models.ExamResultFilter{ExamSubjectID: examSubjectID})
}

type mockExamReader struct {
	exams    map[string]*models.Exam
	subjects map[string]*models.ExamSubject
}

func (m *mockExamReader) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	if exam, ok := m.exams[id]; ok {
		return exam, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockExamReader) FindSubject(ctx context.Context, id string) (*models.ExamSubject, error) {
	if subject, ok := m.subjects[id]; ok {
		return subject, nil
	}
	return nil, sql.ErrNoRows
}

type mockRangesReader struct {
	system *models.GradingSystem
}

func (m *mockRangesReader) FindByID(ctx context.Context, id string) (*models.GradingSystem, error) {
	if m.system == nil {
		return nil, sql.ErrNoRows
	}
	return m.system, nil
}

func resultFixture() (*mockResultRepo, *mockExamReader, *mockRangesReader) {
	results := &mockResultRepo{}
	exams := &mockExamReader{
		exams: map[string]*models.Exam{
			"exam1": {ID: "exam1", ClassID: "class1", GradingSystemID: "gs1", Term: "Term 1", AcademicYear: "2026"},
		},
		subjects: map[string]*models.ExamSubject{
			"es1": {ID: "es1", ExamID: "exam1", MaxScore: 100, PassScore: ptrFloat(50), Weight: 1},
		},
	}
	grading := &mockRangesReader{system: &models.GradingSystem{ID: "gs1", Ranges: kcseRanges()}}
	return results, exams, grading
}

func TestCreateResultDerivesGrade(t *testing.T) {
	results, exams, grading := resultFixture()
	svc := NewResultService(results, exams, grading, nil, nil)

	result, err := svc.Create(context.Background(), CreateResultRequest{
		ExamSubjectID: "es1",
		ResultEntry:   ResultEntry{StudentID: "stu1", Score: ptrFloat(85)},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Grade)
	assert.Equal(t, "A", *result.Grade)
	assert.Equal(t, 12.0, *result.Points)
	assert.Equal(t, "Excellent", *result.Remark)
}

func TestCreateResultAbsentClearsScore(t *testing.T) {
	results, exams, grading := resultFixture()
	svc := NewResultService(results, exams, grading, nil, nil)

	result, err := svc.Create(context.Background(), CreateResultRequest{
		ExamSubjectID: "es1",
		ResultEntry:   ResultEntry{StudentID: "stu1", Score: ptrFloat(85), IsAbsent: true},
	})
	require.NoError(t, err)
	assert.Nil(t, result.Score)
	assert.Equal(t, models.GradeAbsent, *result.Grade)
	assert.Nil(t, result.Points)
}

func TestCreateResultRejectsScoreAboveMax(t *testing.T) {
	results, exams, grading := resultFixture()
	exams.subjects["es1"].MaxScore = 60
	svc := NewResultService(results, exams, grading, nil, nil)

	_, err := svc.Create(context.Background(), CreateResultRequest{
		ExamSubjectID: "es1",
		ResultEntry:   ResultEntry{StudentID: "stu1", Score: ptrFloat(60.5)},
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestCreateResultAcceptsScoreAtMax(t *testing.T) {
	results, exams, grading := resultFixture()
	exams.subjects["es1"].MaxScore = 60
	svc := NewResultService(results, exams, grading, nil, nil)

	_, err := svc.Create(context.Background(), CreateResultRequest{
		ExamSubjectID: "es1",
		ResultEntry:   ResultEntry{StudentID: "stu1", Score: ptrFloat(60)},
	})
	require.NoError(t, err)
}

func TestCreateResultRequiresScoreUnlessAbsent(t *testing.T) {
	results, exams, grading := resultFixture()
	svc := NewResultService(results, exams, grading, nil, nil)

	_, err := svc.Create(context.Background(), CreateResultRequest{
		ExamSubjectID: "es1",
		ResultEntry:   ResultEntry{StudentID: "stu1"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "score is required")
}

func TestCreateResultPropagatesDuplicate(t *testing.T) {
	results, exams, grading := resultFixture()
	results.createErr = appErrors.Clone(appErrors.ErrDuplicateEntry, "a result for this student and subject already exists")
	svc := NewResultService(results, exams, grading, nil, nil)

	_, err := svc.Create(context.Background(), CreateResultRequest{
		ExamSubjectID: "es1",
		ResultEntry:   ResultEntry{StudentID: "stu1", Score: ptrFloat(40)},
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrDuplicateEntry.Code, appErr.Code)
	assert.Equal(t, 409, appErr.Status)
}

func TestUpdateResultRederivesGrade(t *testing.T) {
	results, exams, grading := resultFixture()
	svc := NewResultService(results, exams, grading, nil, nil)

	created, err := svc.Create(context.Background(), CreateResultRequest{
		ExamSubjectID: "es1",
		ResultEntry:   ResultEntry{StudentID: "stu1", Score: ptrFloat(85)},
	})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), created.ID, UpdateResultRequest{Score: ptrFloat(55)})
	require.NoError(t, err)
	assert.Equal(t, "C", *updated.Grade)
	assert.Equal(t, 6.0, *updated.Points)
}

func TestBulkRecordRejectsDuplicateStudents(t *testing.T) {
	results, exams, grading := resultFixture()
	svc := NewResultService(results, exams, grading, nil, nil)

	_, err := svc.BulkRecord(context.Background(), BulkResultRequest{
		ExamSubjectID: "es1",
		Results: []ResultEntry{
			{StudentID: "stu1", Score: ptrFloat(50)},
			{StudentID: "stu1", Score: ptrFloat(60)},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "appears more than once")
}

func TestBulkRecordIsIdempotent(t *testing.T) {
	results, exams, grading := resultFixture()
	svc := NewResultService(results, exams, grading, nil, nil)

	req := BulkResultRequest{
		ExamSubjectID: "es1",
		Results: []ResultEntry{
			{StudentID: "stu1", Score: ptrFloat(50)},
			{StudentID: "stu2", Score: ptrFloat(70)},
		},
	}
	count, err := svc.BulkRecord(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = svc.BulkRecord(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Len(t, results.stored, 2)
}

func TestSubjectStatistics(t *testing.T) {
	results, exams, grading := resultFixture()
	svc := NewResultService(results, exams, grading, nil, nil)

	_, err := svc.BulkRecord(context.Background(), BulkResultRequest{
		ExamSubjectID: "es1",
		Results: []ResultEntry{
			{StudentID: "stu1", Score: ptrFloat(80)},
			{StudentID: "stu2", Score: ptrFloat(40)},
			{StudentID: "stu3", Score: ptrFloat(60)},
			{StudentID: "stu4", IsAbsent: true},
		},
	})
	require.NoError(t, err)

	stats, err := svc.SubjectStatistics(context.Background(), "es1")
	require.NoError(t, err)
	require.NotNil(t, stats.AverageScore)
	assert.Equal(t, 60.0, *stats.AverageScore)
	require.NotNil(t, stats.PassRate)
	// Two of three non-absent students reached the pass mark of 50.
	assert.InDelta(t, 66.67, *stats.PassRate, 0.01)
}

func TestSubjectStatisticsNoData(t *testing.T) {
	results, exams, grading := resultFixture()
	svc := NewResultService(results, exams, grading, nil, nil)

	stats, err := svc.SubjectStatistics(context.Background(), "es1")
	require.NoError(t, err)
	assert.Nil(t, stats.AverageScore)
	assert.Nil(t, stats.PassRate)
}

func TestSubjectStatisticsAllAbsent(t *testing.T) {
	results, exams, grading := resultFixture()
	svc := NewResultService(results, exams, grading, nil, nil)

	_, err := svc.BulkRecord(context.Background(), BulkResultRequest{
		ExamSubjectID: "es1",
		Results:       []ResultEntry{{StudentID: "stu1", IsAbsent: true}},
	})
	require.NoError(t, err)

	stats, err := svc.SubjectStatistics(context.Background(), "es1")
	require.NoError(t, err)
	assert.Nil(t, stats.AverageScore)
	assert.Nil(t, stats.PassRate)
}

func TestSubjectStatisticsNoPassMark(t *testing.T) {
	results, exams, grading := resultFixture()
	exams.subjects["es1"].PassScore = nil
	svc := NewResultService(results, exams, grading, nil, nil)

	_, err := svc.BulkRecord(context.Background(), BulkResultRequest{
		ExamSubjectID: "es1",
		Results:       []ResultEntry{{StudentID: "stu1", Score: ptrFloat(80)}},
	})
	require.NoError(t, err)

	stats, err := svc.SubjectStatistics(context.Background(), "es1")
	require.NoError(t, err)
	require.NotNil(t, stats.AverageScore)
	assert.Nil(t, stats.PassRate)
}
