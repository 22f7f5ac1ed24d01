package quorum

// A Store is the durable storage behind the engine. Plain reads and
// independently committed writes live here; anything that must be atomic
// with other writes goes through a Tx.
type Store interface {
	Connect() error
	Begin() (Tx, error)

	FindUser(id int64) (*User, error)
	FindUserByLogin(login string) (*User, error)
	CreateOrUpdateUser(login string, email string) (int64, error)
	UpdateUser(user *User) error
	UserStats(userID int64) (*UserStats, error)

	InsertQuestion(question *Question) error
	FindQuestion(id int64) (*Question, error)
	ListQuestions(page int, perPage int) ([]*Question, error)
	ListQuestionsWithVotes(userID int64, page int, perPage int) ([]*QuestionSeenByUser, error)

	FindAnswer(id int64) (*Answer, error)
	ListAnswers(questionID int64) ([]*Answer, error)
	ListAnswersWithVotes(questionID int64, userID int64) ([]*AnswerSeenByUser, error)

	FindVote(userID int64, vt VotableType, votableID int64) (*Vote, error)

	ListNotifications(userID int64, limit int) ([]*Notification, error)
	CountUnreadNotifications(userID int64) (int64, error)
	MarkNotificationsRead(userID int64) (int64, error)
}

// A Tx is a single storage transaction. Every method sees the transaction's
// own writes; nothing is visible to others before Commit. Implementations
// must return ErrConflict on serialization failures and deadlocks so
// callers can retry the whole operation.
type Tx interface {
	// FindVotableForUpdate loads a votable and locks its row for the rest
	// of the transaction, serializing concurrent operations on the same
	// target.
	FindVotableForUpdate(vt VotableType, id int64) (*Votable, error)

	FindVote(userID int64, vt VotableType, votableID int64) (*Vote, error)
	InsertVote(vote *Vote) error
	UpdateVote(vote *Vote) error
	DeleteVote(userID int64, vt VotableType, votableID int64) error
	ListVotes(vt VotableType, votableID int64) ([]*Vote, error)
	SetVoteCount(vt VotableType, votableID int64, count int64) error

	// ListVotesOnAuthor returns every vote targeting content authored by
	// the given user, across questions and answers.
	ListVotesOnAuthor(userID int64) ([]*Vote, error)
	SetReputation(userID int64, reputation int64) error

	// FindAnswerWithQuestionForUpdate loads an answer joined with its
	// question and locks the question row, serializing concurrent
	// acceptances on the same question.
	FindAnswerWithQuestionForUpdate(answerID int64) (*AnswerWithQuestion, error)
	ClearAcceptedAnswer(questionID int64) error
	SetAcceptedAnswer(answerID int64) error

	FindQuestion(id int64) (*Question, error)
	InsertAnswer(answer *Answer) error

	InsertNotification(notification *Notification) error

	Commit() error
	Rollback() error
}
