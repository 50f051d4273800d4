package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/peerflow-api/internal/models"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

type recordingPublisher struct {
	events []string
}

func (r *recordingPublisher) Publish(_ context.Context, event string, _ interface{}) {
	r.events = append(r.events, event)
}

type memoryRubricRepo struct {
	rubrics    map[string]models.Rubric
	failCreate bool
	deleted    []string
}

func newMemoryRubricRepo() *memoryRubricRepo {
	return &memoryRubricRepo{rubrics: make(map[string]models.Rubric)}
}

func (m *memoryRubricRepo) Create(_ context.Context, rubric *models.Rubric) error {
	if m.failCreate {
		return errors.New("rubric store unavailable")
	}
	m.rubrics[rubric.ID] = *rubric
	return nil
}

func (m *memoryRubricRepo) GetByID(_ context.Context, id string) (models.Rubric, error) {
	rubric, ok := m.rubrics[id]
	if !ok {
		return models.Rubric{}, gorm.ErrRecordNotFound
	}
	return rubric, nil
}

func (m *memoryRubricRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.rubrics[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.rubrics, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type memoryReviewRepo struct {
	assignments   map[string]models.ReviewAssignment
	order         []string
	nextPairingID uint
	failCreate    bool
	failComplete  bool
	zeroComplete  bool
}

func newMemoryReviewRepo() *memoryReviewRepo {
	return &memoryReviewRepo{
		assignments:   make(map[string]models.ReviewAssignment),
		nextPairingID: 1,
	}
}

func (m *memoryReviewRepo) Create(_ context.Context, assignment *models.ReviewAssignment) error {
	if m.failCreate {
		return errors.New("review store unavailable")
	}
	now := time.Now()
	assignment.CreatedAt = now
	assignment.UpdatedAt = now
	for i := range assignment.Pairings {
		assignment.Pairings[i].ID = m.nextPairingID
		assignment.Pairings[i].ReviewAssignmentID = assignment.ID
		m.nextPairingID++
	}
	m.assignments[assignment.ID] = *assignment
	m.order = append(m.order, assignment.ID)
	return nil
}

func (m *memoryReviewRepo) GetByID(_ context.Context, id string) (models.ReviewAssignment, error) {
	assignment, ok := m.assignments[id]
	if !ok {
		return models.ReviewAssignment{}, gorm.ErrRecordNotFound
	}
	return assignment, nil
}

func (m *memoryReviewRepo) GetByAssignmentID(_ context.Context, assignmentID string) (models.ReviewAssignment, error) {
	for _, assignment := range m.assignments {
		if assignment.AssignmentID == assignmentID {
			return assignment, nil
		}
	}
	return models.ReviewAssignment{}, gorm.ErrRecordNotFound
}

func (m *memoryReviewRepo) List(_ context.Context) ([]models.ReviewAssignment, error) {
	results := make([]models.ReviewAssignment, 0, len(m.order))
	for _, id := range m.order {
		results = append(results, m.assignments[id])
	}
	return results, nil
}

func (m *memoryReviewRepo) ListByAssignmentIDs(_ context.Context, assignmentIDs []string) ([]models.ReviewAssignment, error) {
	wanted := make(map[string]struct{}, len(assignmentIDs))
	for _, id := range assignmentIDs {
		wanted[id] = struct{}{}
	}

	results := make([]models.ReviewAssignment, 0, len(assignmentIDs))
	for _, id := range m.order {
		assignment := m.assignments[id]
		if _, ok := wanted[assignment.AssignmentID]; ok {
			results = append(results, assignment)
		}
	}
	return results, nil
}

func (m *memoryReviewRepo) Save(_ context.Context, assignment *models.ReviewAssignment) error {
	stored, ok := m.assignments[assignment.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	assignment.Pairings = stored.Pairings
	assignment.UpdatedAt = time.Now()
	m.assignments[assignment.ID] = *assignment
	return nil
}

func (m *memoryReviewRepo) ReplacePairings(_ context.Context, reviewAssignmentID string, pairings []models.Pairing) error {
	assignment, ok := m.assignments[reviewAssignmentID]
	if !ok {
		return gorm.ErrRecordNotFound
	}

	replaced := make([]models.Pairing, 0, len(pairings))
	for _, pairing := range pairings {
		pairing.ID = m.nextPairingID
		pairing.ReviewAssignmentID = reviewAssignmentID
		m.nextPairingID++
		replaced = append(replaced, pairing)
	}
	assignment.Pairings = replaced
	m.assignments[reviewAssignmentID] = assignment
	return nil
}

func (m *memoryReviewRepo) CompletePairing(_ context.Context, reviewAssignmentID, reviewerStudentID, revieweeSubmissionID string, results datatypes.JSON) (int64, error) {
	if m.failComplete {
		return 0, errors.New("review store unavailable")
	}
	if m.zeroComplete {
		return 0, nil
	}

	assignment, ok := m.assignments[reviewAssignmentID]
	if !ok {
		return 0, nil
	}
	for i := range assignment.Pairings {
		pairing := &assignment.Pairings[i]
		if pairing.ReviewerStudentID == reviewerStudentID && pairing.RevieweeSubmissionID == revieweeSubmissionID {
			pairing.Status = models.PairingStatusCompleted
			pairing.ReviewResults = results
			m.assignments[reviewAssignmentID] = assignment
			return 1, nil
		}
	}
	return 0, nil
}

type memoryAggregateRepo struct {
	byAssignment   map[string]models.AggregateByAssignment
	bySubmission   map[string]models.AggregateBySubmission
	byReview       map[string]models.AggregateByReview
	failSubmission bool
}

func newMemoryAggregateRepo() *memoryAggregateRepo {
	return &memoryAggregateRepo{
		byAssignment: make(map[string]models.AggregateByAssignment),
		bySubmission: make(map[string]models.AggregateBySubmission),
		byReview:     make(map[string]models.AggregateByReview),
	}
}

func reviewKey(reviewerStudentID, revieweeSubmissionID string) string {
	return reviewerStudentID + "/" + revieweeSubmissionID
}

func (m *memoryAggregateRepo) UpsertByAssignment(_ context.Context, view *models.AggregateByAssignment) error {
	m.byAssignment[view.AssignmentID] = *view
	return nil
}

func (m *memoryAggregateRepo) UpsertBySubmission(_ context.Context, view *models.AggregateBySubmission) error {
	if m.failSubmission {
		return errors.New("aggregate store unavailable")
	}
	m.bySubmission[view.SubmissionID] = *view
	return nil
}

func (m *memoryAggregateRepo) UpsertByReview(_ context.Context, view *models.AggregateByReview) error {
	m.byReview[reviewKey(view.ReviewerStudentID, view.RevieweeSubmissionID)] = *view
	return nil
}

func (m *memoryAggregateRepo) GetByAssignment(_ context.Context, assignmentID string) (models.AggregateByAssignment, error) {
	view, ok := m.byAssignment[assignmentID]
	if !ok {
		return models.AggregateByAssignment{}, gorm.ErrRecordNotFound
	}
	return view, nil
}

func (m *memoryAggregateRepo) GetBySubmission(_ context.Context, submissionID string) (models.AggregateBySubmission, error) {
	view, ok := m.bySubmission[submissionID]
	if !ok {
		return models.AggregateBySubmission{}, gorm.ErrRecordNotFound
	}
	return view, nil
}

func (m *memoryAggregateRepo) GetByReview(_ context.Context, reviewerStudentID, revieweeSubmissionID string) (models.AggregateByReview, error) {
	view, ok := m.byReview[reviewKey(reviewerStudentID, revieweeSubmissionID)]
	if !ok {
		return models.AggregateByReview{}, gorm.ErrRecordNotFound
	}
	return view, nil
}

func (m *memoryAggregateRepo) ListReviewsForSubmission(_ context.Context, revieweeSubmissionID string) ([]models.AggregateByReview, error) {
	var views []models.AggregateByReview
	for _, view := range m.byReview {
		if view.RevieweeSubmissionID == revieweeSubmissionID {
			views = append(views, view)
		}
	}
	return views, nil
}
