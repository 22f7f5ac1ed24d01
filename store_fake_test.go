package quorum

import (
	"fmt"
	"sort"
)

// fakeStore is an in-memory Store for unit tests. Begin snapshots the
// state, Rollback restores it, so transactional semantics hold without a
// database.
type fakeStore struct {
	users         map[int64]*User
	questions     map[int64]*Question
	answers       map[int64]*Answer
	votes         map[string]*Vote
	notifications []*Notification
	nextID        int64

	// conflictsLeft makes the next FindVotableForUpdate and
	// FindAnswerWithQuestionForUpdate calls fail with ErrConflict, to
	// exercise retries.
	conflictsLeft int
	// notifyErr makes InsertNotification fail.
	notifyErr error
	// begun counts opened transactions.
	begun int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     map[int64]*User{},
		questions: map[int64]*Question{},
		answers:   map[int64]*Answer{},
		votes:     map[string]*Vote{},
	}
}

func voteKey(userID int64, vt VotableType, votableID int64) string {
	return fmt.Sprintf("%d/%s/%d", userID, vt, votableID)
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) addUser(name string) *User {
	u := &User{ID: f.id(), Name: name, Email: name + "@example.com"}
	f.users[u.ID] = u
	return u
}

func (f *fakeStore) addQuestion(authorID int64, title string) *Question {
	q := NewQuestion(title, "body", authorID)
	q.ID = f.id()
	f.questions[q.ID] = q
	return q
}

func (f *fakeStore) addAnswer(questionID int64, authorID int64) *Answer {
	a := NewAnswer(questionID, "body", authorID)
	a.ID = f.id()
	f.answers[a.ID] = a
	return a
}

type fakeSnapshot struct {
	users         map[int64]*User
	questions     map[int64]*Question
	answers       map[int64]*Answer
	votes         map[string]*Vote
	notifications []*Notification
	nextID        int64
}

func (f *fakeStore) snapshot() *fakeSnapshot {
	s := &fakeSnapshot{
		users:     map[int64]*User{},
		questions: map[int64]*Question{},
		answers:   map[int64]*Answer{},
		votes:     map[string]*Vote{},
		nextID:    f.nextID,
	}
	for id, u := range f.users {
		c := *u
		s.users[id] = &c
	}
	for id, q := range f.questions {
		c := *q
		s.questions[id] = &c
	}
	for id, a := range f.answers {
		c := *a
		s.answers[id] = &c
	}
	for k, v := range f.votes {
		c := *v
		s.votes[k] = &c
	}
	s.notifications = append(s.notifications, f.notifications...)
	return s
}

func (f *fakeStore) restore(s *fakeSnapshot) {
	f.users = s.users
	f.questions = s.questions
	f.answers = s.answers
	f.votes = s.votes
	f.notifications = s.notifications
	f.nextID = s.nextID
}

func (f *fakeStore) Connect() error { return nil }

func (f *fakeStore) Begin() (Tx, error) {
	f.begun++
	return &fakeTx{f: f, snap: f.snapshot()}, nil
}

func (f *fakeStore) FindUser(id int64) (*User, error) {
	return f.users[id], nil
}

func (f *fakeStore) FindUserByLogin(login string) (*User, error) {
	for _, u := range f.users {
		if u.Name == login {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateOrUpdateUser(login string, email string) (int64, error) {
	if u, _ := f.FindUserByLogin(login); u != nil {
		return u.ID, nil
	}
	u := f.addUser(login)
	u.Email = email
	return u.ID, nil
}

func (f *fakeStore) UpdateUser(user *User) error {
	if _, ok := f.users[user.ID]; !ok {
		return NotFound("user")
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeStore) UserStats(userID int64) (*UserStats, error) {
	stats := &UserStats{}
	for _, q := range f.questions {
		if q.AuthorID == userID {
			stats.Questions++
		}
	}
	for _, a := range f.answers {
		if a.AuthorID == userID {
			stats.Answers++
			if a.IsAccepted {
				stats.AcceptedAnswers++
			}
		}
	}
	if u := f.users[userID]; u != nil {
		stats.Reputation = u.Reputation
	}
	return stats, nil
}

func (f *fakeStore) InsertQuestion(question *Question) error {
	question.ID = f.id()
	f.questions[question.ID] = question
	return nil
}

func (f *fakeStore) FindQuestion(id int64) (*Question, error) {
	return f.questions[id], nil
}

func (f *fakeStore) ListQuestions(page int, perPage int) ([]*Question, error) {
	questions := []*Question{}
	for _, q := range f.questions {
		questions = append(questions, q)
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].ID > questions[j].ID })
	low := page * perPage
	if low > len(questions) {
		return []*Question{}, nil
	}
	high := low + perPage
	if high > len(questions) {
		high = len(questions)
	}
	return questions[low:high], nil
}

func (f *fakeStore) ListQuestionsWithVotes(userID int64, page int, perPage int) ([]*QuestionSeenByUser, error) {
	questions, err := f.ListQuestions(page, perPage)
	if err != nil {
		return nil, err
	}
	res := []*QuestionSeenByUser{}
	for _, q := range questions {
		seen := &QuestionSeenByUser{Question: *q}
		if v := f.votes[voteKey(userID, VotableQuestion, q.ID)]; v != nil {
			vt := v.VoteType
			seen.UserVote = &vt
		}
		res = append(res, seen)
	}
	return res, nil
}

func (f *fakeStore) FindAnswer(id int64) (*Answer, error) {
	return f.answers[id], nil
}

func (f *fakeStore) ListAnswers(questionID int64) ([]*Answer, error) {
	answers := []*Answer{}
	for _, a := range f.answers {
		if a.QuestionID == questionID {
			answers = append(answers, a)
		}
	}
	sort.Slice(answers, func(i, j int) bool {
		if answers[i].IsAccepted != answers[j].IsAccepted {
			return answers[i].IsAccepted
		}
		return answers[i].ID < answers[j].ID
	})
	return answers, nil
}

func (f *fakeStore) ListAnswersWithVotes(questionID int64, userID int64) ([]*AnswerSeenByUser, error) {
	answers, err := f.ListAnswers(questionID)
	if err != nil {
		return nil, err
	}
	res := []*AnswerSeenByUser{}
	for _, a := range answers {
		seen := &AnswerSeenByUser{Answer: *a}
		if v := f.votes[voteKey(userID, VotableAnswer, a.ID)]; v != nil {
			vt := v.VoteType
			seen.UserVote = &vt
		}
		res = append(res, seen)
	}
	return res, nil
}

func (f *fakeStore) FindVote(userID int64, vt VotableType, votableID int64) (*Vote, error) {
	return f.votes[voteKey(userID, vt, votableID)], nil
}

func (f *fakeStore) ListNotifications(userID int64, limit int) ([]*Notification, error) {
	notifications := []*Notification{}
	for _, n := range f.notifications {
		if n.UserID == userID {
			notifications = append(notifications, n)
		}
	}
	// newest first
	sort.Slice(notifications, func(i, j int) bool { return notifications[i].ID > notifications[j].ID })
	if len(notifications) > limit {
		notifications = notifications[:limit]
	}
	return notifications, nil
}

func (f *fakeStore) CountUnreadNotifications(userID int64) (int64, error) {
	var count int64
	for _, n := range f.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) MarkNotificationsRead(userID int64) (int64, error) {
	var count int64
	for _, n := range f.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			count++
		}
	}
	return count, nil
}

// fakeTx mutates the fakeStore directly and undoes everything on rollback.
type fakeTx struct {
	f    *fakeStore
	snap *fakeSnapshot
	done bool
}

func (t *fakeTx) Commit() error {
	t.done = true
	return nil
}

func (t *fakeTx) Rollback() error {
	if t.done {
		return nil
	}
	t.f.restore(t.snap)
	t.done = true
	return nil
}

func (t *fakeTx) FindVotableForUpdate(vt VotableType, id int64) (*Votable, error) {
	if t.f.conflictsLeft > 0 {
		t.f.conflictsLeft--
		return nil, ErrConflict
	}

	switch vt {
	case VotableQuestion:
		if q := t.f.questions[id]; q != nil {
			v := q.Votable()
			return &v, nil
		}
	case VotableAnswer:
		if a := t.f.answers[id]; a != nil {
			v := a.Votable()
			return &v, nil
		}
	}
	return nil, nil
}

func (t *fakeTx) FindVote(userID int64, vt VotableType, votableID int64) (*Vote, error) {
	return t.f.FindVote(userID, vt, votableID)
}

func (t *fakeTx) InsertVote(vote *Vote) error {
	vote.ID = t.f.id()
	t.f.votes[voteKey(vote.UserID, vote.VotableType, vote.VotableID)] = vote
	return nil
}

func (t *fakeTx) UpdateVote(vote *Vote) error {
	t.f.votes[voteKey(vote.UserID, vote.VotableType, vote.VotableID)] = vote
	return nil
}

func (t *fakeTx) DeleteVote(userID int64, vt VotableType, votableID int64) error {
	delete(t.f.votes, voteKey(userID, vt, votableID))
	return nil
}

func (t *fakeTx) ListVotes(vt VotableType, votableID int64) ([]*Vote, error) {
	votes := []*Vote{}
	for _, v := range t.f.votes {
		if v.VotableType == vt && v.VotableID == votableID {
			votes = append(votes, v)
		}
	}
	return votes, nil
}

func (t *fakeTx) SetVoteCount(vt VotableType, votableID int64, count int64) error {
	switch vt {
	case VotableQuestion:
		if q := t.f.questions[votableID]; q != nil {
			q.VoteCount = count
			return nil
		}
	case VotableAnswer:
		if a := t.f.answers[votableID]; a != nil {
			a.VoteCount = count
			return nil
		}
	}
	return NotFound(vt.String())
}

func (t *fakeTx) ListVotesOnAuthor(userID int64) ([]*Vote, error) {
	votes := []*Vote{}
	for _, v := range t.f.votes {
		switch v.VotableType {
		case VotableQuestion:
			if q := t.f.questions[v.VotableID]; q != nil && q.AuthorID == userID {
				votes = append(votes, v)
			}
		case VotableAnswer:
			if a := t.f.answers[v.VotableID]; a != nil && a.AuthorID == userID {
				votes = append(votes, v)
			}
		}
	}
	return votes, nil
}

func (t *fakeTx) SetReputation(userID int64, reputation int64) error {
	u := t.f.users[userID]
	if u == nil {
		return NotFound("user")
	}
	u.Reputation = reputation
	return nil
}

func (t *fakeTx) FindAnswerWithQuestionForUpdate(answerID int64) (*AnswerWithQuestion, error) {
	if t.f.conflictsLeft > 0 {
		t.f.conflictsLeft--
		return nil, ErrConflict
	}

	a := t.f.answers[answerID]
	if a == nil {
		return nil, nil
	}
	q := t.f.questions[a.QuestionID]
	if q == nil {
		return nil, nil
	}
	return &AnswerWithQuestion{
		Answer:           *a,
		QuestionAuthorID: q.AuthorID,
		QuestionTitle:    q.Title,
	}, nil
}

func (t *fakeTx) ClearAcceptedAnswer(questionID int64) error {
	for _, a := range t.f.answers {
		if a.QuestionID == questionID {
			a.IsAccepted = false
		}
	}
	return nil
}

func (t *fakeTx) SetAcceptedAnswer(answerID int64) error {
	a := t.f.answers[answerID]
	if a == nil {
		return NotFound("answer")
	}
	a.IsAccepted = true
	return nil
}

func (t *fakeTx) FindQuestion(id int64) (*Question, error) {
	return t.f.questions[id], nil
}

func (t *fakeTx) InsertAnswer(answer *Answer) error {
	answer.ID = t.f.id()
	t.f.answers[answer.ID] = answer
	return nil
}

func (t *fakeTx) InsertNotification(notification *Notification) error {
	if t.f.notifyErr != nil {
		return t.f.notifyErr
	}
	notification.ID = t.f.id()
	t.f.notifications = append(t.f.notifications, notification)
	return nil
}
