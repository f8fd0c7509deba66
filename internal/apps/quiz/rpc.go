package quiz

import "github.com/marshallshelly/pebble-apps/internal/rpc"

// Register exposes the quiz procedures on srv. generate applies to
// generateQuiz only, typically a rate limit.
func (s *Service) Register(srv *rpc.Server, generate ...rpc.Option) {
	rpc.Register(srv, "quiz.createSubject", s.CreateSubject)
	rpc.Register(srv, "quiz.getSubjects", s.GetSubjects)
	rpc.Register(srv, "quiz.getSubjectById", s.GetSubjectByID)
	rpc.Register(srv, "quiz.updateSubject", s.UpdateSubject)
	rpc.Register(srv, "quiz.deleteSubject", s.DeleteSubject)

	rpc.Register(srv, "quiz.createTopic", s.CreateTopic)
	rpc.Register(srv, "quiz.getTopics", s.GetTopics)
	rpc.Register(srv, "quiz.getTopicById", s.GetTopicByID)
	rpc.Register(srv, "quiz.updateTopic", s.UpdateTopic)
	rpc.Register(srv, "quiz.deleteTopic", s.DeleteTopic)

	rpc.Register(srv, "quiz.createQuestion", s.CreateQuestion)
	rpc.Register(srv, "quiz.getQuestions", s.GetQuestions)
	rpc.Register(srv, "quiz.getQuestionById", s.GetQuestionByID)
	rpc.Register(srv, "quiz.updateQuestion", s.UpdateQuestion)
	rpc.Register(srv, "quiz.deleteQuestion", s.DeleteQuestion)

	rpc.Register(srv, "quiz.generateQuiz", s.GenerateQuiz, generate...)
	rpc.Register(srv, "quiz.exportQuiz", s.ExportQuiz)
	rpc.Register(srv, "quiz.getQuizzes", s.GetQuizzes)
	rpc.Register(srv, "quiz.getQuizById", s.GetQuizByID)
	rpc.Register(srv, "quiz.deleteQuiz", s.DeleteQuiz)
}
