package logger

import "go.uber.org/zap"

const (
	// FieldRepository is the structured log field key for the evaluated repository path.
	FieldRepository = "repository"
	// FieldChallenge is the structured log field key for the challenge identifier.
	FieldChallenge = "challenge"
	// FieldExperience is the structured log field key for the experience tier.
	FieldExperience = "experience_level"
)

// EvaluationFields returns the fields that identify one evaluation request.
func EvaluationFields(repository, challenge, experience string) []zap.Field {
	return StringFields(
		StringField{Key: FieldRepository, Value: repository},
		StringField{Key: FieldChallenge, Value: challenge},
		StringField{Key: FieldExperience, Value: experience},
	)
}

// WithEvaluationFields attaches the evaluation fields to the provided logger.
func WithEvaluationFields(logger *zap.Logger, repository, challenge, experience string) *zap.Logger {
	return WithFields(logger, EvaluationFields(repository, challenge, experience)...)
}
