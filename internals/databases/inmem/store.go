// Package inmem keeps every table the quiz scheduler touches in process memory.
// It implements the same store interfaces as the gorm repositories and is used by
// tests and local dry runs; it is not meant for multi-instance deployments.
package inmem

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	nmodel "academy_backend/internals/features/home/notifications/model"
	nrepo "academy_backend/internals/features/home/notifications/repository"
	smodel "academy_backend/internals/features/school/students/model"
	qmodel "academy_backend/internals/features/school/submissions_assesments/quizzes/model"
	qrepo "academy_backend/internals/features/school/submissions_assesments/quizzes/repository"
	amodel "academy_backend/internals/features/users/auth/model"
	arepo "academy_backend/internals/features/users/auth/repository"
)

var (
	_ qrepo.QuizStore         = (*Store)(nil)
	_ nrepo.NotificationStore = (*Store)(nil)
	_ arepo.SessionStore      = (*Store)(nil)
)

type tables struct {
	quizzes       map[uuid.UUID]qmodel.QuizModel
	quizBatches   []qmodel.QuizBatchModel
	students      []smodel.StudentModel
	attempts      map[uuid.UUID]qmodel.QuizAttemptModel
	answers       []qmodel.QuizAttemptAnswerModel
	notifications []nmodel.NotificationModel
	sessions      map[uuid.UUID]amodel.UserSession
}

func (t tables) clone() tables {
	cp := tables{
		quizzes:       make(map[uuid.UUID]qmodel.QuizModel, len(t.quizzes)),
		quizBatches:   append([]qmodel.QuizBatchModel(nil), t.quizBatches...),
		students:      append([]smodel.StudentModel(nil), t.students...),
		attempts:      make(map[uuid.UUID]qmodel.QuizAttemptModel, len(t.attempts)),
		answers:       append([]qmodel.QuizAttemptAnswerModel(nil), t.answers...),
		notifications: append([]nmodel.NotificationModel(nil), t.notifications...),
		sessions:      make(map[uuid.UUID]amodel.UserSession, len(t.sessions)),
	}
	for k, v := range t.quizzes {
		cp.quizzes[k] = v
	}
	for k, v := range t.attempts {
		cp.attempts[k] = v
	}
	for k, v := range t.sessions {
		cp.sessions[k] = v
	}
	return cp
}

type Store struct {
	mu     sync.Mutex
	t      tables
	faults map[faultKey]error
	panics map[string]bool
}

func New() *Store {
	return &Store{
		t: tables{
			quizzes:  map[uuid.UUID]qmodel.QuizModel{},
			attempts: map[uuid.UUID]qmodel.QuizAttemptModel{},
			sessions: map[uuid.UUID]amodel.UserSession{},
		},
		faults: map[faultKey]error{},
		panics: map[string]bool{},
	}
}

/* =========================================================
   FAULT INJECTION
========================================================= */

type faultKey struct {
	method string
	id     uuid.UUID
}

// Fail makes method return err. id scopes the fault to one quiz/attempt/user;
// uuid.Nil applies it to every call.
func (s *Store) Fail(method string, id uuid.UUID, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, faultKey{method, id})
		return
	}
	s.faults[faultKey{method, id}] = err
}

// Panic makes method panic on its next calls.
func (s *Store) Panic(method string) {
	s.mu.Lock()
	s.panics[method] = true
	s.mu.Unlock()
}

// ClearFaults removes every injected error and panic.
func (s *Store) ClearFaults() {
	s.mu.Lock()
	s.faults = map[faultKey]error{}
	s.panics = map[string]bool{}
	s.mu.Unlock()
}

// fault must be called with s.mu held.
func (s *Store) fault(method string, id uuid.UUID) error {
	if s.panics[method] {
		panic("inmem: injected panic in " + method)
	}
	if err, ok := s.faults[faultKey{method, id}]; ok {
		return err
	}
	return s.faults[faultKey{method, uuid.Nil}]
}

/* =========================================================
   SEEDING & INSPECTION
========================================================= */

func (s *Store) AddQuiz(q qmodel.QuizModel, batchIDs ...uuid.UUID) qmodel.QuizModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q.QuizID == uuid.Nil {
		q.QuizID = uuid.New()
	}
	if q.QuizStatus == "" {
		q.QuizStatus = qmodel.QuizNotStarted
	}
	s.t.quizzes[q.QuizID] = q
	for _, b := range batchIDs {
		s.t.quizBatches = append(s.t.quizBatches, qmodel.QuizBatchModel{QuizBatchQuizID: q.QuizID, QuizBatchBatchID: b})
	}
	return q
}

// SetQuizStatus simulates a manual status change from the authoring UI.
func (s *Store) SetQuizStatus(id uuid.UUID, st qmodel.QuizStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.t.quizzes[id]
	q.QuizStatus = st
	s.t.quizzes[id] = q
}

func (s *Store) Quiz(id uuid.UUID) (qmodel.QuizModel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.t.quizzes[id]
	return q, ok
}

func (s *Store) AddStudent(st smodel.StudentModel) smodel.StudentModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.StudentID == uuid.Nil {
		st.StudentID = uuid.New()
	}
	if st.StudentUserID == uuid.Nil {
		st.StudentUserID = uuid.New()
	}
	s.t.students = append(s.t.students, st)
	return st
}

func (s *Store) AddAttempt(a qmodel.QuizAttemptModel) qmodel.QuizAttemptModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.QuizAttemptID == uuid.Nil {
		a.QuizAttemptID = uuid.New()
	}
	s.t.attempts[a.QuizAttemptID] = a
	return a
}

func (s *Store) AddAnswer(a qmodel.QuizAttemptAnswerModel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.QuizAttemptAnswerID == uuid.Nil {
		a.QuizAttemptAnswerID = uuid.New()
	}
	if a.QuizAttemptAnswerQuestionID == uuid.Nil {
		a.QuizAttemptAnswerQuestionID = uuid.New()
	}
	s.t.answers = append(s.t.answers, a)
}

func (s *Store) Attempt(id uuid.UUID) (qmodel.QuizAttemptModel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.t.attempts[id]
	return a, ok
}

// Attempts lists a quiz's attempts ordered by start time.
func (s *Store) Attempts(quizID uuid.UUID) []qmodel.QuizAttemptModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attemptsLocked(func(a qmodel.QuizAttemptModel) bool { return a.QuizAttemptQuizID == quizID })
}

func (s *Store) Notifications() []nmodel.NotificationModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]nmodel.NotificationModel(nil), s.t.notifications...)
}

func (s *Store) AddSession(sess amodel.UserSession) amodel.UserSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.ID == uuid.Nil {
		sess.ID = uuid.New()
	}
	s.t.sessions[sess.ID] = sess
	return sess
}

func (s *Store) Session(id uuid.UUID) (amodel.UserSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.t.sessions[id]
	return sess, ok
}

/* =========================================================
   QuizStore
========================================================= */

func (s *Store) listQuizzes(method string, keep func(q qmodel.QuizModel) bool) ([]qmodel.QuizModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault(method, uuid.Nil); err != nil {
		return nil, err
	}
	var out []qmodel.QuizModel
	for _, q := range s.t.quizzes {
		if keep(q) {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].QuizStartTime.Equal(out[j].QuizStartTime) {
			return out[i].QuizStartTime.Before(out[j].QuizStartTime)
		}
		return out[i].QuizID.String() < out[j].QuizID.String()
	})
	return out, nil
}

func (s *Store) ListQuizzesDueToStart(ctx context.Context, now time.Time) ([]qmodel.QuizModel, error) {
	return s.listQuizzes("ListQuizzesDueToStart", func(q qmodel.QuizModel) bool {
		return q.QuizStatus == qmodel.QuizNotStarted && q.QuizAutoStart && q.QuizIsActive &&
			!q.QuizStartTime.After(now)
	})
}

func (s *Store) ListQuizzesDueToEnd(ctx context.Context, now time.Time) ([]qmodel.QuizModel, error) {
	return s.listQuizzes("ListQuizzesDueToEnd", func(q qmodel.QuizModel) bool {
		return q.QuizStatus == qmodel.QuizInProgress && q.QuizAutoEnd && q.QuizIsActive &&
			q.QuizEndTimeScheduled != nil && !q.QuizEndTimeScheduled.After(now)
	})
}

func (s *Store) ListQuizzesInGrace(ctx context.Context) ([]qmodel.QuizModel, error) {
	return s.listQuizzes("ListQuizzesInGrace", func(q qmodel.QuizModel) bool {
		return q.QuizStatus == qmodel.QuizInProgress &&
			q.QuizEndTimeScheduled != nil && q.QuizGracePeriodMinutes > 0
	})
}

func (s *Store) ListQuizzesClosedBetween(ctx context.Context, from, to time.Time) ([]qmodel.QuizModel, error) {
	return s.listQuizzes("ListQuizzesClosedBetween", func(q qmodel.QuizModel) bool {
		graceEnd, ok := q.GraceEnd()
		return q.QuizStatus == qmodel.QuizCompleted && ok &&
			!graceEnd.Before(from) && !graceEnd.After(to)
	})
}

func (s *Store) ListQuizzesDueForRelease(ctx context.Context, now time.Time) ([]qmodel.QuizModel, error) {
	return s.listQuizzes("ListQuizzesDueForRelease", func(q qmodel.QuizModel) bool {
		return q.QuizStatus == qmodel.QuizCompleted && q.QuizIsActive && !q.QuizShowCorrectAnswers &&
			q.QuizResultReleaseTime != nil && !q.QuizResultReleaseTime.After(now)
	})
}

func (s *Store) TransitionQuizzes(ctx context.Context, ids []uuid.UUID, from, to qmodel.QuizStatus) ([]qmodel.QuizModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("TransitionQuizzes", uuid.Nil); err != nil {
		return nil, err
	}
	var changed []qmodel.QuizModel
	for _, id := range ids {
		q, ok := s.t.quizzes[id]
		if !ok || q.QuizStatus != from {
			continue
		}
		q.QuizStatus = to
		q.QuizUpdatedAt = time.Now().UTC()
		s.t.quizzes[id] = q
		changed = append(changed, q)
	}
	return changed, nil
}

func (s *Store) PublishQuizResults(ctx context.Context, quizID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("PublishQuizResults", quizID); err != nil {
		return false, err
	}
	q, ok := s.t.quizzes[quizID]
	if !ok || q.QuizShowCorrectAnswers {
		return false, nil
	}
	q.QuizShowCorrectAnswers = true
	s.t.quizzes[quizID] = q
	return true, nil
}

func (s *Store) ListQuizBatchIDs(ctx context.Context, quizID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("ListQuizBatchIDs", quizID); err != nil {
		return nil, err
	}
	var ids []uuid.UUID
	for _, qb := range s.t.quizBatches {
		if qb.QuizBatchQuizID == quizID {
			ids = append(ids, qb.QuizBatchBatchID)
		}
	}
	return ids, nil
}

func (s *Store) listStudents(keep func(st smodel.StudentModel) bool) []uuid.UUID {
	seen := map[uuid.UUID]bool{}
	var ids []uuid.UUID
	for _, st := range s.t.students {
		if st.StudentIsActive && keep(st) && !seen[st.StudentUserID] {
			seen[st.StudentUserID] = true
			ids = append(ids, st.StudentUserID)
		}
	}
	return ids
}

func (s *Store) ListStudentUserIDsByBatches(ctx context.Context, batchIDs []uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("ListStudentUserIDsByBatches", uuid.Nil); err != nil {
		return nil, err
	}
	in := map[uuid.UUID]bool{}
	for _, b := range batchIDs {
		in[b] = true
	}
	return s.listStudents(func(st smodel.StudentModel) bool {
		return st.StudentBatchID != nil && in[*st.StudentBatchID]
	}), nil
}

func (s *Store) ListStudentUserIDsByCourse(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("ListStudentUserIDsByCourse", courseID); err != nil {
		return nil, err
	}
	return s.listStudents(func(st smodel.StudentModel) bool {
		return st.StudentCourseID != nil && *st.StudentCourseID == courseID
	}), nil
}

func (s *Store) attemptsLocked(keep func(a qmodel.QuizAttemptModel) bool) []qmodel.QuizAttemptModel {
	var out []qmodel.QuizAttemptModel
	for _, a := range s.t.attempts {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].QuizAttemptStartTime.Equal(out[j].QuizAttemptStartTime) {
			return out[i].QuizAttemptStartTime.Before(out[j].QuizAttemptStartTime)
		}
		return out[i].QuizAttemptID.String() < out[j].QuizAttemptID.String()
	})
	return out
}

func (s *Store) ListIncompleteAttempts(ctx context.Context, quizID uuid.UUID) ([]qmodel.QuizAttemptModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("ListIncompleteAttempts", quizID); err != nil {
		return nil, err
	}
	return s.attemptsLocked(func(a qmodel.QuizAttemptModel) bool {
		return a.QuizAttemptQuizID == quizID && !a.QuizAttemptIsCompleted
	}), nil
}

func (s *Store) ListAttemptAnswers(ctx context.Context, attemptID uuid.UUID) ([]qmodel.QuizAttemptAnswerModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("ListAttemptAnswers", attemptID); err != nil {
		return nil, err
	}
	var out []qmodel.QuizAttemptAnswerModel
	for _, ans := range s.t.answers {
		if ans.QuizAttemptAnswerAttemptID == attemptID {
			out = append(out, ans)
		}
	}
	return out, nil
}

func (s *Store) ListAttemptUserIDs(ctx context.Context, quizID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("ListAttemptUserIDs", quizID); err != nil {
		return nil, err
	}
	seen := map[uuid.UUID]bool{}
	var ids []uuid.UUID
	for _, a := range s.attemptsLocked(func(a qmodel.QuizAttemptModel) bool { return a.QuizAttemptQuizID == quizID }) {
		if !seen[a.QuizAttemptUserID] {
			seen[a.QuizAttemptUserID] = true
			ids = append(ids, a.QuizAttemptUserID)
		}
	}
	return ids, nil
}

func (s *Store) CompleteAttempt(ctx context.Context, attemptID uuid.UUID, c qmodel.AttemptCompletion) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("CompleteAttempt", attemptID); err != nil {
		return false, err
	}
	a, ok := s.t.attempts[attemptID]
	if !ok || a.QuizAttemptIsCompleted {
		return false, nil
	}
	submit := c.SubmitTime
	a.QuizAttemptIsCompleted = true
	a.QuizAttemptSubmitTime = &submit
	if sc := c.Score; sc != nil {
		a.QuizAttemptScore = sc.Score
		a.QuizAttemptCorrectAnswers = sc.CorrectAnswers
		a.QuizAttemptWrongAnswers = sc.WrongAnswers
		a.QuizAttemptTotalQuestions = sc.TotalQuestions
		a.QuizAttemptAccuracy = sc.Accuracy
		a.QuizAttemptTimeTaken = sc.TimeTaken
	}
	a.QuizAttemptUpdatedAt = time.Now().UTC()
	s.t.attempts[attemptID] = a
	return true, nil
}

func (s *Store) CreateUnattendedAttempt(ctx context.Context, attempt *qmodel.QuizAttemptModel) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("CreateUnattendedAttempt", attempt.QuizAttemptUserID); err != nil {
		return false, err
	}
	for _, a := range s.t.attempts {
		if a.QuizAttemptIsUnattended && a.QuizAttemptQuizID == attempt.QuizAttemptQuizID &&
			a.QuizAttemptUserID == attempt.QuizAttemptUserID {
			return false, nil
		}
	}
	if attempt.QuizAttemptID == uuid.Nil {
		attempt.QuizAttemptID = uuid.New()
	}
	now := time.Now().UTC()
	attempt.QuizAttemptCreatedAt, attempt.QuizAttemptUpdatedAt = now, now
	s.t.attempts[attempt.QuizAttemptID] = *attempt
	return true, nil
}

// Transaction restores the tables as they were before fn when fn fails.
// Nested calls behave like savepoints.
func (s *Store) Transaction(ctx context.Context, fn func(tx qrepo.QuizStore) error) error {
	snapshot, err := s.begin()
	if err != nil {
		return err
	}

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.t = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) begin() (tables, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("Transaction", uuid.Nil); err != nil {
		return tables{}, err
	}
	return s.t.clone(), nil
}

/* =========================================================
   NotificationStore
========================================================= */

func (s *Store) InsertNotifications(ctx context.Context, rows []nmodel.NotificationModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("InsertNotifications", uuid.Nil); err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, r := range rows {
		if r.NotificationID == uuid.Nil {
			r.NotificationID = uuid.New()
		}
		r.NotificationCreatedAt = now
		s.t.notifications = append(s.t.notifications, r)
	}
	return nil
}

/* =========================================================
   SessionStore
========================================================= */

func (s *Store) DeactivateIdleSessions(ctx context.Context, threshold time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("DeactivateIdleSessions", uuid.Nil); err != nil {
		return 0, err
	}
	var n int64
	for id, sess := range s.t.sessions {
		if sess.IsActive && sess.LastActive.Before(threshold) {
			sess.IsActive = false
			s.t.sessions[id] = sess
			n++
		}
	}
	return n, nil
}
