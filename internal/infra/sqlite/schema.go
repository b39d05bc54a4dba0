package sqlite

import "context"

func (s *Store) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS questions (
	id TEXT PRIMARY KEY,
	subject TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL DEFAULT '',
	explanation TEXT NOT NULL DEFAULT '',
	difficulty INTEGER NOT NULL DEFAULT 0,
	tags TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_questions_subject ON questions(subject);

CREATE TABLE IF NOT EXISTS options (
	id TEXT PRIMARY KEY,
	question_id TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
	option_text TEXT NOT NULL,
	is_correct INTEGER NOT NULL DEFAULT 0,
	position INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_options_question ON options(question_id);

CREATE TABLE IF NOT EXISTS quiz_sessions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id),
	mode TEXT NOT NULL CHECK (mode IN ('speed', 'study')),
	start_time TIMESTAMP NOT NULL,
	end_time TIMESTAMP,
	total_questions INTEGER NOT NULL DEFAULT 0,
	correct_answers INTEGER NOT NULL DEFAULT 0,
	time_spent INTEGER NOT NULL DEFAULT 0,
	completed INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_quiz_sessions_mode ON quiz_sessions(mode, completed);
CREATE INDEX IF NOT EXISTS idx_quiz_sessions_user ON quiz_sessions(user_id, created_at);

CREATE TABLE IF NOT EXISTS question_answers (
	session_id TEXT NOT NULL REFERENCES quiz_sessions(id),
	question_id TEXT NOT NULL REFERENCES questions(id),
	selected_option_id TEXT NOT NULL,
	is_correct INTEGER NOT NULL,
	attempt_count INTEGER NOT NULL DEFAULT 1,
	time_taken INTEGER NOT NULL DEFAULT 0,
	answered_at TIMESTAMP NOT NULL,
	PRIMARY KEY (session_id, question_id)
);
`)
	return err
}
