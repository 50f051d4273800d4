package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/peerflow-api/internal/dto"
	"github.com/noah-isme/peerflow-api/internal/models"
)

func newReviewAssignmentService(reviews *memoryReviewRepo, rubrics *memoryRubricRepo, events EventPublisher) ReviewAssignmentService {
	validate := validator.New(validator.WithRequiredStructEnabled())
	return NewReviewAssignmentService(reviews, rubrics, validate, events, testLogger())
}

func validCreatePayload() dto.ReviewAssignmentCreateRequest {
	return dto.ReviewAssignmentCreateRequest{
		AssignmentID:                   "assign-1",
		NumberOfReviewersPerSubmission: 1,
		ReviewDeadline:                 time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
		ReviewerAssignmentMode:         models.ReviewerAssignmentModeManual,
		Pairings: []dto.PairingRequest{
			{ReviewerStudentID: "stu-1", RevieweeSubmissionID: "sub-1", RevieweeStudentID: "stu-2"},
			{ReviewerStudentID: "stu-2", RevieweeSubmissionID: "sub-2", RevieweeStudentID: "stu-1"},
		},
		Rubric: dto.RubricRequest{
			Criteria: []dto.CriterionRequest{
				{Title: "Quality", Description: "Overall quality of the work", MinScore: 1, MaxScore: 5},
			},
		},
	}
}

func TestReviewAssignmentServiceCreateSuccess(t *testing.T) {
	reviews := newMemoryReviewRepo()
	rubrics := newMemoryRubricRepo()
	events := &recordingPublisher{}
	svc := newReviewAssignmentService(reviews, rubrics, events)

	created, err := svc.Create(context.Background(), validCreatePayload())
	require.NoError(t, err)
	require.Equal(t, "assign-1", created.AssignmentID)
	require.Equal(t, models.ReviewStatusStarted, created.Status)
	require.Len(t, created.Pairings, 2)
	for _, pairing := range created.Pairings {
		require.Equal(t, models.PairingStatusInProgress, pairing.Status)
		require.Nil(t, pairing.ReviewResults)
	}
	require.Len(t, created.Rubric.Criteria, 1)
	require.NotEmpty(t, created.Rubric.ID)
	require.Equal(t, []string{EventReviewCreated}, events.events)
}

func TestReviewAssignmentServiceCreateConflict(t *testing.T) {
	reviews := newMemoryReviewRepo()
	rubrics := newMemoryRubricRepo()
	svc := newReviewAssignmentService(reviews, rubrics, &recordingPublisher{})

	_, err := svc.Create(context.Background(), validCreatePayload())
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), validCreatePayload())
	require.ErrorIs(t, err, ErrReviewAssignmentExists)
}

func TestReviewAssignmentServiceCreatePastDeadlineIsClosed(t *testing.T) {
	reviews := newMemoryReviewRepo()
	rubrics := newMemoryRubricRepo()
	svc := newReviewAssignmentService(reviews, rubrics, &recordingPublisher{})

	payload := validCreatePayload()
	payload.ReviewDeadline = time.Now().Add(-24 * time.Hour).UTC().Format(time.RFC3339)

	created, err := svc.Create(context.Background(), payload)
	require.NoError(t, err)
	require.Equal(t, models.ReviewStatusClosed, created.Status)
	require.Len(t, rubrics.rubrics, 1)
}

func TestReviewAssignmentServiceCreateInvalidPairingsDeletesRubric(t *testing.T) {
	reviews := newMemoryReviewRepo()
	rubrics := newMemoryRubricRepo()
	svc := newReviewAssignmentService(reviews, rubrics, &recordingPublisher{})

	payload := validCreatePayload()
	payload.Pairings = []dto.PairingRequest{
		{ReviewerStudentID: "stu-1", RevieweeSubmissionID: "sub-1", RevieweeStudentID: "stu-1"},
	}

	_, err := svc.Create(context.Background(), payload)
	require.Error(t, err)
	require.Equal(t, "Submission sub-1 cannot be reviewed by itself.", err.Error())
	require.Empty(t, rubrics.rubrics)
	require.Len(t, rubrics.deleted, 1)
	require.Empty(t, reviews.assignments)
}

func TestReviewAssignmentServiceCreateSecondWriteDeletesRubric(t *testing.T) {
	reviews := newMemoryReviewRepo()
	reviews.failCreate = true
	rubrics := newMemoryRubricRepo()
	svc := newReviewAssignmentService(reviews, rubrics, &recordingPublisher{})

	_, err := svc.Create(context.Background(), validCreatePayload())
	require.Error(t, err)
	require.Empty(t, rubrics.rubrics)
	require.Len(t, rubrics.deleted, 1)
}

func TestReviewAssignmentServiceGetByAssignmentID(t *testing.T) {
	reviews := newMemoryReviewRepo()
	rubrics := newMemoryRubricRepo()
	svc := newReviewAssignmentService(reviews, rubrics, &recordingPublisher{})

	created, err := svc.Create(context.Background(), validCreatePayload())
	require.NoError(t, err)

	fetched, err := svc.GetByAssignmentID(context.Background(), "assign-1")
	require.NoError(t, err)
	require.Equal(t, created.ID, fetched.ID)
	require.Equal(t, created.Rubric.ID, fetched.Rubric.ID)

	_, err = svc.GetByAssignmentID(context.Background(), "missing")
	require.ErrorIs(t, err, ErrReviewAssignmentNotFound)
}

func TestReviewAssignmentServiceGetMissingRubric(t *testing.T) {
	reviews := newMemoryReviewRepo()
	rubrics := newMemoryRubricRepo()
	svc := newReviewAssignmentService(reviews, rubrics, &recordingPublisher{})

	created, err := svc.Create(context.Background(), validCreatePayload())
	require.NoError(t, err)

	delete(rubrics.rubrics, created.Rubric.ID)

	_, err = svc.GetByAssignmentID(context.Background(), "assign-1")
	require.ErrorIs(t, err, ErrRubricNotFound)
}

func TestReviewAssignmentServiceListSkipsRubricless(t *testing.T) {
	reviews := newMemoryReviewRepo()
	rubrics := newMemoryRubricRepo()
	svc := newReviewAssignmentService(reviews, rubrics, &recordingPublisher{})

	first, err := svc.Create(context.Background(), validCreatePayload())
	require.NoError(t, err)

	second := validCreatePayload()
	second.AssignmentID = "assign-2"
	broken, err := svc.Create(context.Background(), second)
	require.NoError(t, err)

	delete(rubrics.rubrics, broken.Rubric.ID)

	listed, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, first.ID, listed[0].ID)
}

func TestReviewAssignmentServiceListByAssignmentIDs(t *testing.T) {
	reviews := newMemoryReviewRepo()
	rubrics := newMemoryRubricRepo()
	svc := newReviewAssignmentService(reviews, rubrics, &recordingPublisher{})

	for _, id := range []string{"assign-1", "assign-2", "assign-3"} {
		payload := validCreatePayload()
		payload.AssignmentID = id
		_, err := svc.Create(context.Background(), payload)
		require.NoError(t, err)
	}

	listed, err := svc.ListByAssignmentIDs(context.Background(), []string{"assign-1", "assign-3"})
	require.NoError(t, err)
	require.Len(t, listed, 2)
	require.Equal(t, "assign-1", listed[0].AssignmentID)
	require.Equal(t, "assign-3", listed[1].AssignmentID)
}

func TestReviewAssignmentServiceUpdateMissing(t *testing.T) {
	reviews := newMemoryReviewRepo()
	rubrics := newMemoryRubricRepo()
	svc := newReviewAssignmentService(reviews, rubrics, &recordingPublisher{})

	mode := models.ReviewerAssignmentModeAutomatic
	_, err := svc.Update(context.Background(), "missing", dto.ReviewAssignmentUpdateRequest{ReviewerAssignmentMode: &mode})
	require.ErrorIs(t, err, ErrReviewAssignmentNotFound)
}

func TestReviewAssignmentServiceUpdatePartial(t *testing.T) {
	reviews := newMemoryReviewRepo()
	rubrics := newMemoryRubricRepo()
	svc := newReviewAssignmentService(reviews, rubrics, &recordingPublisher{})

	created, err := svc.Create(context.Background(), validCreatePayload())
	require.NoError(t, err)

	mode := models.ReviewerAssignmentModeAutomatic
	updated, err := svc.Update(context.Background(), created.ID, dto.ReviewAssignmentUpdateRequest{ReviewerAssignmentMode: &mode})
	require.NoError(t, err)
	require.Equal(t, mode, updated.ReviewerAssignmentMode)
	require.Equal(t, created.NumberOfReviewersPerSubmission, updated.NumberOfReviewersPerSubmission)
	require.True(t, created.ReviewDeadline.Equal(updated.ReviewDeadline))
}

func TestReviewAssignmentServiceUpdateUnchangedIsSuccess(t *testing.T) {
	reviews := newMemoryReviewRepo()
	rubrics := newMemoryRubricRepo()
	svc := newReviewAssignmentService(reviews, rubrics, &recordingPublisher{})

	created, err := svc.Create(context.Background(), validCreatePayload())
	require.NoError(t, err)

	mode := created.ReviewerAssignmentMode
	updated, err := svc.Update(context.Background(), created.ID, dto.ReviewAssignmentUpdateRequest{ReviewerAssignmentMode: &mode})
	require.NoError(t, err)
	require.Equal(t, created.ReviewerAssignmentMode, updated.ReviewerAssignmentMode)
}

func TestReviewAssignmentServiceUpdateAssignmentID(t *testing.T) {
	reviews := newMemoryReviewRepo()
	rubrics := newMemoryRubricRepo()
	svc := newReviewAssignmentService(reviews, rubrics, &recordingPublisher{})

	created, err := svc.Create(context.Background(), validCreatePayload())
	require.NoError(t, err)

	renamed := "assign-1-renamed"
	updated, err := svc.Update(context.Background(), created.ID, dto.ReviewAssignmentUpdateRequest{AssignmentID: &renamed})
	require.NoError(t, err)
	require.Equal(t, renamed, updated.AssignmentID)

	fetched, err := svc.GetByAssignmentID(context.Background(), renamed)
	require.NoError(t, err)
	require.Equal(t, created.ID, fetched.ID)

	_, err = svc.GetByAssignmentID(context.Background(), "assign-1")
	require.ErrorIs(t, err, ErrReviewAssignmentNotFound)
}

func TestReviewAssignmentServiceUpdateReplacesPairings(t *testing.T) {
	reviews := newMemoryReviewRepo()
	rubrics := newMemoryRubricRepo()
	svc := newReviewAssignmentService(reviews, rubrics, &recordingPublisher{})

	created, err := svc.Create(context.Background(), validCreatePayload())
	require.NoError(t, err)

	// Two reviewers on one submission breaks the stored reviewers-per-
	// submission count of 1; partial updates accept it anyway.
	updated, err := svc.Update(context.Background(), created.ID, dto.ReviewAssignmentUpdateRequest{
		Pairings: []dto.PairingRequest{
			{ReviewerStudentID: "stu-3", RevieweeSubmissionID: "sub-3", RevieweeStudentID: "stu-4"},
			{ReviewerStudentID: "stu-4", RevieweeSubmissionID: "sub-3", RevieweeStudentID: "stu-4"},
		},
	})
	require.NoError(t, err)
	require.Len(t, updated.Pairings, 2)
	for _, pairing := range updated.Pairings {
		require.Equal(t, "sub-3", pairing.RevieweeSubmissionID)
		require.Equal(t, models.PairingStatusInProgress, pairing.Status)
		require.Nil(t, pairing.ReviewResults)
	}
}
