package quiz

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/marshallshelly/pebble-apps/internal/apperr"
	"github.com/marshallshelly/pebble-apps/internal/apps/crud"
	"github.com/marshallshelly/pebble-apps/internal/sanitize"
	"github.com/marshallshelly/pebble-apps/pkg/builder"
	"github.com/marshallshelly/pebble-apps/pkg/listquery"
	"github.com/marshallshelly/pebble-apps/pkg/optional"
)

const (
	entitySubject  = "Subject"
	entityTopic    = "Topic"
	entityQuestion = "Question"
	entityQuiz     = "Quiz"

	duplicateSubject = "a subject with this name already exists"

	// noQuestions is the error message of generateQuiz on an empty pool.
	noQuestions = "No questions found matching the specified criteria"
)

// Service implements the quiz procedures.
type Service struct {
	db     *builder.DB
	logger *slog.Logger
	// intN returns a uniform int in [0, n). Tests replace it for a fixed order.
	intN func(n int) int
}

// NewService creates the quiz service.
func NewService(db *builder.DB, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, logger: logger.With(slog.String("app", "quiz")), intN: rand.IntN}
}

// Subjects

// CreateSubjectInput is the input of createSubject.
type CreateSubjectInput struct {
	Name        string  `json:"name" binding:"required,max=100"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
}

// UpdateSubjectInput is the patch of updateSubject.
type UpdateSubjectInput struct {
	ID          int64                   `json:"id" binding:"required,min=1"`
	Name        optional.Field[string]  `json:"name" binding:"omitempty,min=1,max=100"`
	Description optional.Field[*string] `json:"description" binding:"omitempty,max=1000"`
}

// CreateSubject adds a subject.
func (s *Service) CreateSubject(ctx context.Context, in *CreateSubjectInput) (*Subject, error) {
	subject, err := builder.Insert[Subject](s.db).Values(Subject{
		Name:        sanitize.Text(in.Name),
		Description: sanitize.Ptr(in.Description),
	}).One(ctx)
	if err != nil {
		return nil, apperr.FromStore(err, duplicateSubject)
	}
	return subject, nil
}

// GetSubjects lists subjects by name.
func (s *Service) GetSubjects(ctx context.Context, f *SubjectFilter) ([]Subject, error) {
	return listquery.Apply(builder.Select[Subject](s.db), subjectList, f).All(ctx)
}

// GetSubjectByID returns one subject.
func (s *Service) GetSubjectByID(ctx context.Context, in *crud.ByID) (*Subject, error) {
	return crud.Get[Subject](ctx, s.db, entitySubject, in.ID)
}

// UpdateSubject changes the fields present in the patch.
func (s *Service) UpdateSubject(ctx context.Context, in *UpdateSubjectInput) (*Subject, error) {
	u := builder.Update[Subject](s.db).
		SetIf(in.Name.Present(), "name", sanitize.Text(in.Name.Get())).
		SetIf(in.Description.Present(), "description", sanitize.Ptr(in.Description.Get()))
	return crud.Patch(ctx, s.db, u, entitySubject, in.ID, duplicateSubject)
}

// DeleteSubject removes a subject with its topics and questions.
func (s *Service) DeleteSubject(ctx context.Context, in *crud.ByID) (crud.DeleteResult, error) {
	return crud.Delete[Subject](ctx, s.db, entitySubject, in.ID, crud.MissingFails)
}

// Topics

// CreateTopicInput is the input of createTopic.
type CreateTopicInput struct {
	SubjectID   int64   `json:"subject_id" binding:"required,min=1"`
	Name        string  `json:"name" binding:"required,max=100"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
}

// UpdateTopicInput is the patch of updateTopic.
type UpdateTopicInput struct {
	ID          int64                   `json:"id" binding:"required,min=1"`
	SubjectID   optional.Field[int64]   `json:"subject_id" binding:"omitempty,min=1"`
	Name        optional.Field[string]  `json:"name" binding:"omitempty,min=1,max=100"`
	Description optional.Field[*string] `json:"description" binding:"omitempty,max=1000"`
}

// CreateTopic adds a topic to an existing subject.
func (s *Service) CreateTopic(ctx context.Context, in *CreateTopicInput) (*Topic, error) {
	if err := crud.MustExist[Subject](ctx, s.db, entitySubject, in.SubjectID); err != nil {
		return nil, err
	}
	topic, err := builder.Insert[Topic](s.db).Values(Topic{
		SubjectID:   in.SubjectID,
		Name:        sanitize.Text(in.Name),
		Description: sanitize.Ptr(in.Description),
	}).One(ctx)
	if err != nil {
		return nil, apperr.FromStore(err, "")
	}
	return topic, nil
}

// GetTopics lists topics.
func (s *Service) GetTopics(ctx context.Context, f *TopicFilter) ([]Topic, error) {
	return listquery.Apply(builder.Select[Topic](s.db), topicList, f).All(ctx)
}

// GetTopicByID returns one topic.
func (s *Service) GetTopicByID(ctx context.Context, in *crud.ByID) (*Topic, error) {
	return crud.Get[Topic](ctx, s.db, entityTopic, in.ID)
}

// UpdateTopic changes the fields present in the patch.
func (s *Service) UpdateTopic(ctx context.Context, in *UpdateTopicInput) (*Topic, error) {
	if subjectID, ok := in.SubjectID.Value(); ok {
		if err := crud.MustExist[Subject](ctx, s.db, entitySubject, subjectID); err != nil {
			return nil, err
		}
	}
	u := builder.Update[Topic](s.db).
		SetIf(in.SubjectID.Present(), "subject_id", in.SubjectID.Get()).
		SetIf(in.Name.Present(), "name", sanitize.Text(in.Name.Get())).
		SetIf(in.Description.Present(), "description", sanitize.Ptr(in.Description.Get()))
	return crud.Patch(ctx, s.db, u, entityTopic, in.ID, "")
}

// DeleteTopic removes a topic. Its questions stay, without a topic.
func (s *Service) DeleteTopic(ctx context.Context, in *crud.ByID) (crud.DeleteResult, error) {
	return crud.Delete[Topic](ctx, s.db, entityTopic, in.ID, crud.MissingFails)
}

// Questions

// CreateQuestionInput is the input of createQuestion.
type CreateQuestionInput struct {
	SubjectID     int64    `json:"subject_id" binding:"required,min=1"`
	TopicID       *int64   `json:"topic_id" binding:"omitempty,min=1"`
	QuestionText  string   `json:"question_text" binding:"required,min=5,max=5000"`
	QuestionType  string   `json:"question_type" binding:"required,oneof=multiple_choice true_false short_answer"`
	Difficulty    *string  `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
	Options       []string `json:"options" binding:"omitempty,max=10,dive,required,max=500"`
	CorrectAnswer string   `json:"correct_answer" binding:"required,max=1000"`
	Explanation   *string  `json:"explanation" binding:"omitempty,max=5000"`
	Points        *int     `json:"points" binding:"omitempty,min=1,max=100"`
}

// UpdateQuestionInput is the patch of updateQuestion.
type UpdateQuestionInput struct {
	ID            int64                    `json:"id" binding:"required,min=1"`
	SubjectID     optional.Field[int64]    `json:"subject_id" binding:"omitempty,min=1"`
	TopicID       optional.Field[*int64]   `json:"topic_id" binding:"omitempty,min=1"`
	QuestionText  optional.Field[string]   `json:"question_text" binding:"omitempty,min=5,max=5000"`
	QuestionType  optional.Field[string]   `json:"question_type" binding:"omitempty,oneof=multiple_choice true_false short_answer"`
	Difficulty    optional.Field[string]   `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
	Options       optional.Field[[]string] `json:"options" binding:"omitempty,max=10"`
	CorrectAnswer optional.Field[string]   `json:"correct_answer" binding:"omitempty,min=1,max=1000"`
	Explanation   optional.Field[*string]  `json:"explanation" binding:"omitempty,max=5000"`
	Points        optional.Field[int]      `json:"points" binding:"omitempty,min=1,max=100"`
}

// checkAnswer enforces the rules that depend on the question type. It returns
// the answer to store, normalized for true/false questions.
func checkAnswer(questionType string, options []string, answer string) (string, error) {
	switch questionType {
	case TypeMultipleChoice:
		if len(options) < 2 {
			return "", apperr.Validation("options must have at least 2 entries for multiple_choice questions")
		}
		if !slices.Contains(options, answer) {
			return "", apperr.Validation("correct_answer must be one of the options")
		}
	case TypeTrueFalse:
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "true" && answer != "false" {
			return "", apperr.Validation("correct_answer must be true or false")
		}
	}
	return answer, nil
}

// checkTopic fails unless topicID exists and belongs to subjectID.
func checkTopic(ctx context.Context, q builder.Querier, subjectID, topicID int64) error {
	topic, err := crud.Get[Topic](ctx, q, entityTopic, topicID)
	if err != nil {
		return err
	}
	if topic.SubjectID != subjectID {
		return apperr.Validation("topic %d does not belong to subject %d", topicID, subjectID)
	}
	return nil
}

func cleanOptions(options []string) []string {
	if options == nil {
		return nil
	}
	out := make([]string, len(options))
	for i, opt := range options {
		out[i] = sanitize.Text(opt)
	}
	return out
}

// CreateQuestion adds a question to the bank.
func (s *Service) CreateQuestion(ctx context.Context, in *CreateQuestionInput) (*Question, error) {
	options := cleanOptions(in.Options)
	answer, err := checkAnswer(in.QuestionType, options, sanitize.Text(in.CorrectAnswer))
	if err != nil {
		return nil, err
	}
	if err := crud.MustExist[Subject](ctx, s.db, entitySubject, in.SubjectID); err != nil {
		return nil, err
	}
	if in.TopicID != nil {
		if err := checkTopic(ctx, s.db, in.SubjectID, *in.TopicID); err != nil {
			return nil, err
		}
	}

	q := Question{
		SubjectID:     in.SubjectID,
		TopicID:       in.TopicID,
		QuestionText:  sanitize.Text(in.QuestionText),
		QuestionType:  in.QuestionType,
		Difficulty:    "medium",
		Options:       options,
		CorrectAnswer: answer,
		Explanation:   sanitize.Ptr(in.Explanation),
		Points:        1,
	}
	if in.Difficulty != nil {
		q.Difficulty = *in.Difficulty
	}
	if in.Points != nil {
		q.Points = *in.Points
	}
	question, err := builder.Insert[Question](s.db).Values(q).One(ctx)
	if err != nil {
		return nil, apperr.FromStore(err, "")
	}
	return question, nil
}

// GetQuestions lists questions. A topic or subject that does not exist yields no rows.
func (s *Service) GetQuestions(ctx context.Context, f *QuestionFilter) ([]Question, error) {
	return listquery.Apply(builder.Select[Question](s.db), questionList, f).All(ctx)
}

// GetQuestionByID returns one question.
func (s *Service) GetQuestionByID(ctx context.Context, in *crud.ByID) (*Question, error) {
	return crud.Get[Question](ctx, s.db, entityQuestion, in.ID)
}

// UpdateQuestion changes the fields present in the patch. The type rules are
// checked against the merged question.
func (s *Service) UpdateQuestion(ctx context.Context, in *UpdateQuestionInput) (*Question, error) {
	var question *Question
	err := s.db.WithTx(ctx, func(tx *builder.Tx) error {
		current, err := crud.Lock[Question](ctx, tx, entityQuestion, in.ID)
		if err != nil {
			return err
		}

		subjectID := in.SubjectID.Or(current.SubjectID)
		if in.SubjectID.Present() {
			if err := crud.MustExist[Subject](ctx, tx, entitySubject, subjectID); err != nil {
				return err
			}
		}
		topicID := in.TopicID.Or(current.TopicID)
		if topicID != nil && (in.TopicID.Present() || in.SubjectID.Present()) {
			if err := checkTopic(ctx, tx, subjectID, *topicID); err != nil {
				return err
			}
		}

		options := current.Options
		if in.Options.Present() {
			options = cleanOptions(in.Options.Get())
		}
		answer := current.CorrectAnswer
		if in.CorrectAnswer.Present() {
			answer = sanitize.Text(in.CorrectAnswer.Get())
		}
		questionType := in.QuestionType.Or(current.QuestionType)
		checked, err := checkAnswer(questionType, options, answer)
		if err != nil {
			return err
		}

		u := builder.Update[Question](tx).
			SetIf(in.SubjectID.Present(), "subject_id", subjectID).
			SetIf(in.TopicID.Present(), "topic_id", topicID).
			SetIf(in.QuestionText.Present(), "question_text", sanitize.Text(in.QuestionText.Get())).
			SetIf(in.QuestionType.Present(), "question_type", questionType).
			SetIf(in.Difficulty.Present(), "difficulty", in.Difficulty.Get()).
			SetIf(in.Options.Present(), "options", options).
			SetIf(in.CorrectAnswer.Present() || checked != current.CorrectAnswer, "correct_answer", checked).
			SetIf(in.Explanation.Present(), "explanation", sanitize.Ptr(in.Explanation.Get())).
			SetIf(in.Points.Present(), "points", in.Points.Get())
		question, err = crud.Update(ctx, tx, u, entityQuestion, in.ID, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	return question, nil
}

// DeleteQuestion removes a question and takes it out of every quiz. A missing
// id reports success=false.
func (s *Service) DeleteQuestion(ctx context.Context, in *crud.ByID) (crud.DeleteResult, error) {
	return crud.Delete[Question](ctx, s.db, entityQuestion, in.ID, crud.MissingIsFalse)
}

// Quizzes

// GenerateQuizInput is the input of generateQuiz.
type GenerateQuizInput struct {
	Title          *string `json:"title" binding:"omitempty,min=1,max=200"`
	SubjectIDs     []int64 `json:"subject_ids" binding:"required,min=1,max=20,dive,min=1"`
	TopicIDs       []int64 `json:"topic_ids" binding:"omitempty,max=50,dive,min=1"`
	Difficulty     *string `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
	QuestionType   *string `json:"question_type" binding:"omitempty,oneof=multiple_choice true_false short_answer"`
	QuestionCount  int     `json:"question_count" binding:"required,min=1,max=200"`
	IncludeAnswers bool    `json:"include_answers"`
}

// ExportQuizInput is the input of exportQuiz. IncludeAnswers defaults to the
// quiz's own setting.
type ExportQuizInput struct {
	ID             int64 `json:"id" binding:"required,min=1"`
	IncludeAnswers *bool `json:"include_answers"`
}

// QuizDetail is a quiz with its questions in order.
type QuizDetail struct {
	Quiz      Quiz       `json:"quiz"`
	Questions []Question `json:"questions"`
}

// GeneratedQuiz is the result of generateQuiz.
type GeneratedQuiz struct {
	Quiz      Quiz       `json:"quiz"`
	Questions []Question `json:"questions"`
	Document  Document   `json:"document"`
}

// shuffle is an in-place Fisher-Yates shuffle driven by intN.
func shuffle[T any](items []T, intN func(n int) int) {
	for i := len(items) - 1; i > 0; i-- {
		j := intN(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

// GenerateQuiz draws up to question_count distinct questions at random from
// the matching pool and stores them as a quiz.
func (s *Service) GenerateQuiz(ctx context.Context, in *GenerateQuizInput) (*GeneratedQuiz, error) {
	title := "Quiz"
	if in.Title != nil {
		if t := sanitize.Text(*in.Title); t != "" {
			title = t
		}
	}
	subjectIDs := slices.Clone(in.SubjectIDs)
	slices.Sort(subjectIDs)
	subjectIDs = slices.Compact(subjectIDs)

	var out *GeneratedQuiz
	err := s.db.WithTx(ctx, func(tx *builder.Tx) error {
		pool, err := listquery.Apply(builder.Select[Question](tx), questionPool, &QuestionFilter{
			SubjectIDs:   subjectIDs,
			TopicIDs:     in.TopicIDs,
			Difficulty:   in.Difficulty,
			QuestionType: in.QuestionType,
		}).All(ctx)
		if err != nil {
			return err
		}
		if len(pool) == 0 {
			return apperr.NotFoundf(noQuestions)
		}
		shuffle(pool, s.intN)
		picked := pool[:min(in.QuestionCount, len(pool))]

		quiz := Quiz{
			Title:          title,
			SubjectIDs:     subjectIDs,
			Difficulty:     in.Difficulty,
			QuestionType:   in.QuestionType,
			IncludeAnswers: in.IncludeAnswers,
			QuestionCount:  len(picked),
		}
		if len(subjectIDs) == 1 {
			quiz.SubjectID = &subjectIDs[0]
		}
		stored, err := builder.Insert[Quiz](tx).Values(quiz).One(ctx)
		if err != nil {
			return apperr.FromStore(err, "")
		}

		links := make([]QuizQuestion, len(picked))
		for i, q := range picked {
			links[i] = QuizQuestion{QuizID: stored.ID, Position: i + 1, QuestionID: q.ID}
		}
		if _, err := builder.Insert[QuizQuestion](tx).Values(links...).Exec(ctx); err != nil {
			return apperr.FromStore(err, "")
		}

		subjects, err := subjectNames(ctx, tx, stored.SubjectIDs)
		if err != nil {
			return err
		}
		out = &GeneratedQuiz{
			Quiz:      *stored,
			Questions: picked,
			Document:  renderDocument(stored.Title, subjects, picked, stored.IncludeAnswers),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Generated quiz",
		slog.Int64("id", out.Quiz.ID),
		slog.Int("questions", len(out.Questions)),
		slog.Int("requested", in.QuestionCount))
	return out, nil
}

// GetQuizzes lists quizzes, newest first.
func (s *Service) GetQuizzes(ctx context.Context, f *QuizFilter) ([]Quiz, error) {
	return listquery.Apply(builder.Select[Quiz](s.db), quizList, f).All(ctx)
}

// GetQuizByID returns a quiz with its questions in order.
func (s *Service) GetQuizByID(ctx context.Context, in *crud.ByID) (*QuizDetail, error) {
	quiz, questions, err := s.loadQuiz(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	return &QuizDetail{Quiz: *quiz, Questions: questions}, nil
}

// ExportQuiz renders a stored quiz again. Unchanged questions give a
// byte-identical document.
func (s *Service) ExportQuiz(ctx context.Context, in *ExportQuizInput) (*Document, error) {
	quiz, questions, err := s.loadQuiz(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	subjects, err := subjectNames(ctx, s.db, quiz.SubjectIDs)
	if err != nil {
		return nil, err
	}
	includeAnswers := quiz.IncludeAnswers
	if in.IncludeAnswers != nil {
		includeAnswers = *in.IncludeAnswers
	}
	doc := renderDocument(quiz.Title, subjects, questions, includeAnswers)
	return &doc, nil
}

// DeleteQuiz removes a quiz. The questions stay in the bank. A missing id
// reports success=false.
func (s *Service) DeleteQuiz(ctx context.Context, in *crud.ByID) (crud.DeleteResult, error) {
	return crud.Delete[Quiz](ctx, s.db, entityQuiz, in.ID, crud.MissingIsFalse)
}

func (s *Service) loadQuiz(ctx context.Context, id int64) (*Quiz, []Question, error) {
	quiz, err := crud.Get[Quiz](ctx, s.db, entityQuiz, id)
	if err != nil {
		return nil, nil, err
	}
	questions, err := selectQuizQuestions(s.db, id).All(ctx)
	if err != nil {
		return nil, nil, err
	}
	return quiz, questions, nil
}

// subjectNames returns the names of ids in id order. Deleted subjects are skipped.
func subjectNames(ctx context.Context, q builder.Querier, ids []int64) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	subjects, err := builder.Select[Subject](q).
		Where(builder.In("id", builder.Args(ids)...)).
		OrderByAsc("id").
		All(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(subjects))
	for i, subject := range subjects {
		names[i] = subject.Name
	}
	return names, nil
}
