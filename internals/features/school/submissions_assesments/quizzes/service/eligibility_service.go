package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	qmodel "academy_backend/internals/features/school/submissions_assesments/quizzes/model"
	"academy_backend/internals/features/school/submissions_assesments/quizzes/repository"
)

// EligibilityService resolves who may attempt a quiz. Nothing is cached: every call
// reflects current batch and course membership.
type EligibilityService struct {
	Store repository.QuizStore
}

func NewEligibilityService(store repository.QuizStore) *EligibilityService {
	return &EligibilityService{Store: store}
}

// EligibleUserIDs returns the sorted, de-duplicated user ids entitled to the quiz:
//   - quiz has batch assignments → active students in any of those batches
//   - no batches but a course     → active students of that course
//   - neither                     → nobody
func (s *EligibilityService) EligibleUserIDs(ctx context.Context, quiz qmodel.QuizModel) ([]uuid.UUID, error) {
	batchIDs, err := s.Store.ListQuizBatchIDs(ctx, quiz.QuizID)
	if err != nil {
		return nil, fmt.Errorf("load batches of quiz %s: %w", quiz.QuizID, err)
	}

	var ids []uuid.UUID
	switch {
	case len(batchIDs) > 0:
		ids, err = s.Store.ListStudentUserIDsByBatches(ctx, batchIDs)
		if err != nil {
			return nil, fmt.Errorf("load batch students of quiz %s: %w", quiz.QuizID, err)
		}
	case quiz.QuizCourseID != nil && *quiz.QuizCourseID != uuid.Nil:
		ids, err = s.Store.ListStudentUserIDsByCourse(ctx, *quiz.QuizCourseID)
		if err != nil {
			return nil, fmt.Errorf("load course students of quiz %s: %w", quiz.QuizID, err)
		}
	default:
		return nil, nil
	}
	return uniqueSorted(ids), nil
}

func uniqueSorted(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == uuid.Nil {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Difference returns the ids in all that are not in exclude, keeping all's order.
func Difference(all, exclude []uuid.UUID) []uuid.UUID {
	skip := make(map[uuid.UUID]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}
	var out []uuid.UUID
	for _, id := range all {
		if _, ok := skip[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
