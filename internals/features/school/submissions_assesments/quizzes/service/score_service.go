package service

import (
	"context"
	"fmt"
	"math"
	"time"

	qmodel "academy_backend/internals/features/school/submissions_assesments/quizzes/model"
	"academy_backend/internals/features/school/submissions_assesments/quizzes/repository"
)

// ScoreService auto-submits open attempts from the answers already recorded.
// The same code path serves the end pass and any other caller that needs a cutoff submit.
type ScoreService struct{}

func NewScoreService() *ScoreService {
	return &ScoreService{}
}

// ComputeScore aggregates answers into the attempt summary:
//   - score          = Σ marks_obtained
//   - correct/wrong  = counts by is_correct
//   - total          = max(attempt.total_questions, len(answers))
//   - accuracy       = correct/total*100, 0 when total is 0
//   - time_taken     = cutoff - start_time in seconds, never negative
func ComputeScore(attempt qmodel.QuizAttemptModel, answers []qmodel.QuizAttemptAnswerModel, cutoff time.Time) (qmodel.AttemptScore, error) {
	var sc qmodel.AttemptScore
	for _, ans := range answers {
		if ans.QuizAttemptAnswerAttemptID != attempt.QuizAttemptID {
			return qmodel.AttemptScore{}, fmt.Errorf("answer %s belongs to attempt %s, not %s",
				ans.QuizAttemptAnswerID, ans.QuizAttemptAnswerAttemptID, attempt.QuizAttemptID)
		}
		if math.IsNaN(ans.QuizAttemptAnswerMarksObtained) || math.IsInf(ans.QuizAttemptAnswerMarksObtained, 0) {
			return qmodel.AttemptScore{}, fmt.Errorf("answer %s has invalid marks %v",
				ans.QuizAttemptAnswerID, ans.QuizAttemptAnswerMarksObtained)
		}
		sc.Score += ans.QuizAttemptAnswerMarksObtained
		if ans.QuizAttemptAnswerIsCorrect {
			sc.CorrectAnswers++
		} else {
			sc.WrongAnswers++
		}
	}

	sc.TotalQuestions = attempt.QuizAttemptTotalQuestions
	if len(answers) > sc.TotalQuestions {
		sc.TotalQuestions = len(answers)
	}
	if sc.TotalQuestions > 0 {
		sc.Accuracy = float64(sc.CorrectAnswers) / float64(sc.TotalQuestions) * 100
	}

	if elapsed := cutoff.Sub(attempt.QuizAttemptStartTime); elapsed > 0 {
		sc.TimeTaken = int64(elapsed / time.Second)
	}
	return sc, nil
}

// AutoSubmit grades attempt at cutoff and closes it in one guarded update.
// submitted=false means the attempt was already completed by someone else.
func (s *ScoreService) AutoSubmit(ctx context.Context, store repository.QuizStore, attempt qmodel.QuizAttemptModel, cutoff time.Time) (bool, error) {
	if attempt.QuizAttemptIsCompleted {
		return false, nil
	}

	answers, err := store.ListAttemptAnswers(ctx, attempt.QuizAttemptID)
	if err != nil {
		return false, fmt.Errorf("load answers of attempt %s: %w", attempt.QuizAttemptID, err)
	}
	sc, err := ComputeScore(attempt, answers, cutoff)
	if err != nil {
		return false, err
	}

	submitted, err := store.CompleteAttempt(ctx, attempt.QuizAttemptID, qmodel.AttemptCompletion{
		SubmitTime: cutoff,
		Score:      &sc,
	})
	if err != nil {
		return false, fmt.Errorf("complete attempt %s: %w", attempt.QuizAttemptID, err)
	}
	return submitted, nil
}
