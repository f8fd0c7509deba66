// Package quiz is a question bank that assembles randomized quizzes and
// renders them as downloadable text documents.
package quiz

import "time"

// Question types.
const (
	TypeMultipleChoice = "multiple_choice"
	TypeTrueFalse      = "true_false"
	TypeShortAnswer    = "short_answer"
)

// Subject is a top-level area such as "Chemistry".
type Subject struct {
	ID          int64     `json:"id" po:"id,primaryKey,bigserial"`
	Name        string    `json:"name" po:"name,text,notNull,unique"`
	Description *string   `json:"description" po:"description,text"`
	CreatedAt   time.Time `json:"created_at" po:"created_at,timestamptz,notNull,default(now())"`
}

func (Subject) TableName() string { return "subjects" }

// Topic narrows a subject. Deleting one detaches its questions.
type Topic struct {
	ID          int64     `json:"id" po:"id,primaryKey,bigserial"`
	SubjectID   int64     `json:"subject_id" po:"subject_id,bigint,notNull,index,fk:subjects(id),onDelete:cascade"`
	Name        string    `json:"name" po:"name,text,notNull"`
	Description *string   `json:"description" po:"description,text"`
	CreatedAt   time.Time `json:"created_at" po:"created_at,timestamptz,notNull,default(now())"`
}

func (Topic) TableName() string { return "topics" }

// Question is one bank entry. Options only matter for multiple choice.
type Question struct {
	ID            int64     `json:"id" po:"id,primaryKey,bigserial"`
	SubjectID     int64     `json:"subject_id" po:"subject_id,bigint,notNull,index,fk:subjects(id),onDelete:cascade"`
	TopicID       *int64    `json:"topic_id" po:"topic_id,bigint,index,fk:topics(id),onDelete:setnull"`
	QuestionText  string    `json:"question_text" po:"question_text,text,notNull"`
	QuestionType  string    `json:"question_type" po:"question_type,text,notNull,enum(multiple_choice|true_false|short_answer)"`
	Difficulty    string    `json:"difficulty" po:"difficulty,text,notNull,default('medium'),enum(easy|medium|hard),index"`
	Options       []string  `json:"options" po:"options,text[]"`
	CorrectAnswer string    `json:"correct_answer" po:"correct_answer,text,notNull"`
	Explanation   *string   `json:"explanation" po:"explanation,text"`
	Points        int       `json:"points" po:"points,integer,notNull,default(1),check(points BETWEEN 1 AND 100)"`
	CreatedAt     time.Time `json:"created_at" po:"created_at,timestamptz,notNull,default(now())"`
	UpdatedAt     time.Time `json:"updated_at" po:"updated_at,timestamptz,notNull,default(now())"`
}

func (Question) TableName() string { return "questions" }

// Quiz is a generated selection of questions. SubjectID is set when the quiz
// was drawn from a single subject.
type Quiz struct {
	ID             int64     `json:"id" po:"id,primaryKey,bigserial"`
	Title          string    `json:"title" po:"title,text,notNull"`
	SubjectID      *int64    `json:"subject_id" po:"subject_id,bigint,fk:subjects(id),onDelete:setnull"`
	SubjectIDs     []int64   `json:"subject_ids" po:"subject_ids,notNull"`
	Difficulty     *string   `json:"difficulty" po:"difficulty,text"`
	QuestionType   *string   `json:"question_type" po:"question_type,text"`
	IncludeAnswers bool      `json:"include_answers" po:"include_answers,boolean,notNull,default(false)"`
	QuestionCount  int       `json:"question_count" po:"question_count,integer,notNull"`
	CreatedAt      time.Time `json:"created_at" po:"created_at,timestamptz,notNull,default(now())"`
}

func (Quiz) TableName() string { return "quizzes" }

// QuizQuestion places a question at a 1-based position in a quiz.
type QuizQuestion struct {
	QuizID     int64 `po:"quiz_id,bigint,primaryKey,fk:quizzes(id),onDelete:cascade"`
	Position   int   `po:"position,integer,primaryKey"`
	QuestionID int64 `po:"question_id,bigint,notNull,index,fk:questions(id),onDelete:cascade"`
}

func (QuizQuestion) TableName() string { return "quiz_questions" }

// Models returns the persisted models of the app.
func Models() []any {
	return []any{Subject{}, Topic{}, Question{}, Quiz{}, QuizQuestion{}}
}
