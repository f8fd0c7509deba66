package quiz

import (
	"github.com/marshallshelly/pebble-apps/pkg/builder"
	"github.com/marshallshelly/pebble-apps/pkg/listquery"
)

// SubjectFilter filters getSubjects.
type SubjectFilter struct {
	Search *string `json:"search"`
}

var subjectList = listquery.Definition[SubjectFilter]{
	Predicates: []listquery.Predicate[SubjectFilter]{
		listquery.Search(func(f *SubjectFilter) *string { return f.Search }, "name", "description"),
	},
	Order: []builder.OrderBy{{Column: "name", Direction: builder.Asc}},
}

// TopicFilter filters getTopics.
type TopicFilter struct {
	SubjectID *int64  `json:"subject_id"`
	Search    *string `json:"search"`
}

var topicList = listquery.Definition[TopicFilter]{
	Predicates: []listquery.Predicate[TopicFilter]{
		listquery.Equals("subject_id", func(f *TopicFilter) *int64 { return f.SubjectID }),
		listquery.Search(func(f *TopicFilter) *string { return f.Search }, "name", "description"),
	},
}

// QuestionFilter filters getQuestions and selects the pool of generateQuiz.
type QuestionFilter struct {
	SubjectID    *int64  `json:"subject_id"`
	SubjectIDs   []int64 `json:"subject_ids" binding:"omitempty,dive,min=1"`
	TopicID      *int64  `json:"topic_id"`
	TopicIDs     []int64 `json:"topic_ids" binding:"omitempty,dive,min=1"`
	Difficulty   *string `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
	QuestionType *string `json:"question_type" binding:"omitempty,oneof=multiple_choice true_false short_answer"`
	Search       *string `json:"search"`
	listquery.Page
}

var questionPredicates = []listquery.Predicate[QuestionFilter]{
	listquery.Equals("subject_id", func(f *QuestionFilter) *int64 { return f.SubjectID }),
	listquery.InList("subject_id", func(f *QuestionFilter) []int64 { return f.SubjectIDs }),
	listquery.Equals("topic_id", func(f *QuestionFilter) *int64 { return f.TopicID }),
	listquery.InList("topic_id", func(f *QuestionFilter) []int64 { return f.TopicIDs }),
	listquery.Equals("difficulty", func(f *QuestionFilter) *string { return f.Difficulty }),
	listquery.Equals("question_type", func(f *QuestionFilter) *string { return f.QuestionType }),
	listquery.Search(func(f *QuestionFilter) *string { return f.Search }, "question_text", "explanation"),
}

var questionList = listquery.Definition[QuestionFilter]{
	Predicates: questionPredicates,
	Limit:      listquery.Limit{Default: 50, Max: 200},
}

// questionPool is questionList without paging; generation shuffles the whole pool.
var questionPool = listquery.Definition[QuestionFilter]{
	Predicates: questionPredicates,
}

// QuizFilter pages getQuizzes.
type QuizFilter struct {
	SubjectID *int64 `json:"subject_id"`
	listquery.Page
}

var quizList = listquery.Definition[QuizFilter]{
	Predicates: []listquery.Predicate[QuizFilter]{
		listquery.When(func(f *QuizFilter) *int64 { return f.SubjectID }, func(id int64) builder.Condition {
			return builder.Expr("? = ANY(subject_ids)", id)
		}),
	},
	Order: []builder.OrderBy{{Column: "id", Direction: builder.Desc}},
	Limit: listquery.Limit{Default: 20, Max: 100},
}

// selectQuizQuestions loads the questions of a quiz in position order.
func selectQuizQuestions(q builder.Querier, quizID int64) *builder.SelectQuery[Question] {
	return builder.Select[Question](q).
		From("quiz_questions qq").
		InnerJoin("questions q", "q.id = qq.question_id").
		Columns("q.*").
		Where(builder.Eq("qq.quiz_id", quizID)).
		OrderByAsc("qq.position")
}
