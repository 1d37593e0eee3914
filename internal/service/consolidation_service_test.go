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

type mockRuleRepo struct {
	rules   []models.ConsolidationRule
	created []models.ConsolidationRule
	updated []models.ConsolidationRule
}

func (m *mockRuleRepo) ListBySchool(ctx context.Context, schoolID string) ([]models.ConsolidationRule, error) {
	return m.rules, nil
}

func (m *mockRuleRepo) ListActiveBySchool(ctx context.Context, schoolID string) ([]models.ConsolidationRule, error) {
	var active []models.ConsolidationRule
	for _, rule := range m.rules {
		if rule.IsActive {
			active = append(active, rule)
		}
	}
	return active, nil
}

func (m *mockRuleRepo) Create(ctx context.Context, rule *models.ConsolidationRule) error {
	m.created = append(m.created, *rule)
	return nil
}

func (m *mockRuleRepo) Update(ctx context.Context, rule *models.ConsolidationRule) error {
	m.updated = append(m.updated, *rule)
	return nil
}

type mockConsolidatedRepo struct {
	stored    map[string]models.ConsolidatedReport
	published []string
}

func (m *mockConsolidatedRepo) UpsertAll(ctx context.Context, reports []models.ConsolidatedReport) error {
	if m.stored == nil {
		m.stored = make(map[string]models.ConsolidatedReport)
	}
	for _, report := range reports {
		m.stored[report.StudentID] = report
	}
	return nil
}

func (m *mockConsolidatedRepo) List(ctx context.Context, filter models.ConsolidatedReportFilter) ([]models.ConsolidatedReport, int, error) {
	var result []models.ConsolidatedReport
	for _, report := range m.stored {
		result = append(result, report)
	}
	return result, len(result), nil
}

func (m *mockConsolidatedRepo) SetPublished(ctx context.Context, id string, published bool) error {
	m.published = append(m.published, id)
	return nil
}

type mockPublishedExamFinder struct {
	exams map[string]*models.Exam
}

func (m *mockPublishedExamFinder) FindPublishedByTypeForClass(ctx context.Context, classID, examTypeID, term, academicYear string) (*models.Exam, error) {
	if exam, ok := m.exams[classID+"/"+examTypeID]; ok {
		return exam, nil
	}
	return nil, sql.ErrNoRows
}

type mockSchoolRoster struct {
	students []models.Student
}

func (m *mockSchoolRoster) ListActiveBySchool(ctx context.Context, schoolID string) ([]models.Student, error) {
	return m.students, nil
}

type mockDefaultGrading struct {
	system *models.GradingSystem
}

func (m *mockDefaultGrading) FindDefaultBySchool(ctx context.Context, schoolID string) (*models.GradingSystem, error) {
	if m.system == nil {
		return nil, sql.ErrNoRows
	}
	return m.system, nil
}

type consolidationFixture struct {
	rules    *mockRuleRepo
	reports  *mockConsolidatedRepo
	exams    *mockPublishedExamFinder
	results  *mockResultsReader
	roster   *mockSchoolRoster
	grading  *mockDefaultGrading
	schoolID string
}

func newConsolidationFixture() *consolidationFixture {
	return &consolidationFixture{
		rules: &mockRuleRepo{rules: []models.ConsolidationRule{
			{ID: "rule1", ExamTypeID: "opener", ExamTypeName: "Opener", Weight: 20, IsActive: true},
			{ID: "rule2", ExamTypeID: "midterm", ExamTypeName: "Midterm", Weight: 20, IsActive: true},
			{ID: "rule3", ExamTypeID: "endterm", ExamTypeName: "Endterm", Weight: 60, IsActive: true},
		}},
		reports: &mockConsolidatedRepo{},
		exams: &mockPublishedExamFinder{exams: map[string]*models.Exam{
			"class1/opener":  {ID: "exam-opener", ClassID: "class1"},
			"class1/midterm": {ID: "exam-midterm", ClassID: "class1"},
			"class1/endterm": {ID: "exam-endterm", ClassID: "class1"},
		}},
		results: &mockResultsReader{byExam: map[string][]models.ExamResult{
			"exam-opener":  {{ExamSubjectID: "s1", StudentID: "stu1", Score: ptrFloat(70)}},
			"exam-midterm": {{ExamSubjectID: "s1", StudentID: "stu1", Score: ptrFloat(75)}},
			"exam-endterm": {{ExamSubjectID: "s1", StudentID: "stu1", Score: ptrFloat(80)}},
		}},
		roster:   &mockSchoolRoster{students: []models.Student{{ID: "stu1", SchoolID: "school1", ClassID: "class1"}}},
		grading:  &mockDefaultGrading{system: &models.GradingSystem{ID: "gs1", IsDefault: true, Ranges: kcseRanges()}},
		schoolID: "school1",
	}
}

func (f *consolidationFixture) service() *ConsolidationService {
	return NewConsolidationService(f.rules, f.reports, f.exams, f.results, f.roster, f.grading, nil, nil, nil, nil)
}

func TestConsolidationWeightedTotal(t *testing.T) {
	f := newConsolidationFixture()
	svc := f.service()

	count, err := svc.Generate(context.Background(), f.schoolID, GenerateConsolidationRequest{Term: "Term 1", AcademicYear: "2026"})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	report := f.reports.stored["stu1"]
	// 70*0.20 + 75*0.20 + 80*0.60
	assert.Equal(t, 77.0, report.AverageScore)
	assert.Equal(t, "B", report.OverallGrade)
	assert.Equal(t, 1, report.OverallPosition)
	require.Len(t, report.Details, 3)
	assert.Equal(t, "exam-endterm", report.Details[2].ExamID)
	assert.Equal(t, 48.0, report.Details[2].WeightedScore)
}

func TestConsolidationRejectsWeightMismatch(t *testing.T) {
	f := newConsolidationFixture()
	f.rules.rules[2].Weight = 50
	svc := f.service()

	_, err := svc.Generate(context.Background(), f.schoolID, GenerateConsolidationRequest{Term: "Term 1", AcademicYear: "2026"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrWeightMismatch.Code, appErr.Code)
	assert.Equal(t, 400, appErr.Status)
	assert.Empty(t, f.reports.stored)
}

func TestConsolidationCountsInactiveRulesOut(t *testing.T) {
	f := newConsolidationFixture()
	// Deactivating the midterm rule drops the sum below 100.
	f.rules.rules[1].IsActive = false
	svc := f.service()

	_, err := svc.Generate(context.Background(), f.schoolID, GenerateConsolidationRequest{Term: "Term 1", AcademicYear: "2026"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrWeightMismatch.Code, appErrors.FromError(err).Code)
}

func TestConsolidationSkipsMissingExamContribution(t *testing.T) {
	f := newConsolidationFixture()
	delete(f.exams.exams, "class1/midterm")
	svc := f.service()

	count, err := svc.Generate(context.Background(), f.schoolID, GenerateConsolidationRequest{Term: "Term 1", AcademicYear: "2026"})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	report := f.reports.stored["stu1"]
	// 70*0.20 + 80*0.60, no midterm contribution
	assert.Equal(t, 62.0, report.AverageScore)
	assert.Len(t, report.Details, 2)
}

func TestConsolidationSkipsStudentsWithNoContributions(t *testing.T) {
	f := newConsolidationFixture()
	f.roster.students = append(f.roster.students, models.Student{ID: "stu2", SchoolID: "school1", ClassID: "class1"})
	svc := f.service()

	count, err := svc.Generate(context.Background(), f.schoolID, GenerateConsolidationRequest{Term: "Term 1", AcademicYear: "2026"})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	_, exists := f.reports.stored["stu2"]
	assert.False(t, exists)
}

func TestConsolidationAveragesAcrossSubjects(t *testing.T) {
	f := newConsolidationFixture()
	f.results.byExam["exam-endterm"] = []models.ExamResult{
		{ExamSubjectID: "s1", StudentID: "stu1", Score: ptrFloat(90)},
		{ExamSubjectID: "s2", StudentID: "stu1", Score: ptrFloat(70)},
		{ExamSubjectID: "s3", StudentID: "stu1", IsAbsent: true},
	}
	svc := f.service()

	_, err := svc.Generate(context.Background(), f.schoolID, GenerateConsolidationRequest{Term: "Term 1", AcademicYear: "2026"})
	require.NoError(t, err)

	report := f.reports.stored["stu1"]
	// Endterm mean is (90+70)/2 = 80; absent papers never count.
	assert.Equal(t, 77.0, report.AverageScore)
}

func TestConsolidationRanksPerClass(t *testing.T) {
	f := newConsolidationFixture()
	f.roster.students = []models.Student{
		{ID: "stu1", SchoolID: "school1", ClassID: "class1"},
		{ID: "stu2", SchoolID: "school1", ClassID: "class1"},
		{ID: "stu3", SchoolID: "school1", ClassID: "class2"},
	}
	f.exams.exams["class2/opener"] = &models.Exam{ID: "exam-opener-c2", ClassID: "class2"}
	f.exams.exams["class2/midterm"] = &models.Exam{ID: "exam-midterm-c2", ClassID: "class2"}
	f.exams.exams["class2/endterm"] = &models.Exam{ID: "exam-endterm-c2", ClassID: "class2"}
	f.results.byExam = map[string][]models.ExamResult{
		"exam-opener": {
			{ExamSubjectID: "s1", StudentID: "stu1", Score: ptrFloat(70)},
			{ExamSubjectID: "s1", StudentID: "stu2", Score: ptrFloat(90)},
		},
		"exam-midterm": {
			{ExamSubjectID: "s1", StudentID: "stu1", Score: ptrFloat(70)},
			{ExamSubjectID: "s1", StudentID: "stu2", Score: ptrFloat(90)},
		},
		"exam-endterm": {
			{ExamSubjectID: "s1", StudentID: "stu1", Score: ptrFloat(70)},
			{ExamSubjectID: "s1", StudentID: "stu2", Score: ptrFloat(90)},
		},
		"exam-opener-c2":  {{ExamSubjectID: "s1", StudentID: "stu3", Score: ptrFloat(40)}},
		"exam-midterm-c2": {{ExamSubjectID: "s1", StudentID: "stu3", Score: ptrFloat(40)}},
		"exam-endterm-c2": {{ExamSubjectID: "s1", StudentID: "stu3", Score: ptrFloat(40)}},
	}
	svc := f.service()

	count, err := svc.Generate(context.Background(), f.schoolID, GenerateConsolidationRequest{Term: "Term 1", AcademicYear: "2026"})
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	assert.Equal(t, 2, f.reports.stored["stu1"].OverallPosition)
	assert.Equal(t, 1, f.reports.stored["stu2"].OverallPosition)
	// The weakest student still tops their own class.
	assert.Equal(t, 1, f.reports.stored["stu3"].OverallPosition)
}

func TestConsolidationRequiresActiveRules(t *testing.T) {
	f := newConsolidationFixture()
	f.rules.rules = nil
	svc := f.service()

	_, err := svc.Generate(context.Background(), f.schoolID, GenerateConsolidationRequest{Term: "Term 1", AcademicYear: "2026"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no active consolidation rules")
}

func TestConsolidationRequiresDefaultGradingSystem(t *testing.T) {
	f := newConsolidationFixture()
	f.grading.system = nil
	svc := f.service()

	_, err := svc.Generate(context.Background(), f.schoolID, GenerateConsolidationRequest{Term: "Term 1", AcademicYear: "2026"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no default grading system")
}

func TestConsolidationRequiresTermScope(t *testing.T) {
	f := newConsolidationFixture()
	svc := f.service()

	_, err := svc.Generate(context.Background(), f.schoolID, GenerateConsolidationRequest{Term: "", AcademicYear: "2026"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestConsolidationIsIdempotent(t *testing.T) {
	f := newConsolidationFixture()
	svc := f.service()

	req := GenerateConsolidationRequest{Term: "Term 1", AcademicYear: "2026"}
	_, err := svc.Generate(context.Background(), f.schoolID, req)
	require.NoError(t, err)
	first := f.reports.stored["stu1"]

	_, err = svc.Generate(context.Background(), f.schoolID, req)
	require.NoError(t, err)
	second := f.reports.stored["stu1"]

	assert.Equal(t, first.AverageScore, second.AverageScore)
	assert.Equal(t, first.OverallPosition, second.OverallPosition)
	assert.Len(t, f.reports.stored, 1)
}

func TestCreateRuleValidatesWeight(t *testing.T) {
	f := newConsolidationFixture()
	svc := f.service()

	_, err := svc.CreateRule(context.Background(), f.schoolID, CreateRuleRequest{ExamTypeID: "opener", Weight: 150})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.rules.created)
}
