package db

// Timestamps are unix seconds in both dialects.

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS profile (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL DEFAULT '',
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'user',
  handicap_index REAL NOT NULL DEFAULT 54,
  initial_handicap_index REAL NOT NULL DEFAULT 54,
  plan_selected TEXT NOT NULL DEFAULT 'free',
  subscription_status TEXT NOT NULL DEFAULT '',
  current_period_end INTEGER,
  cancel_at_period_end INTEGER NOT NULL DEFAULT 0,
  billing_version INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS course (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  city TEXT NOT NULL DEFAULT '',
  country TEXT NOT NULL DEFAULT '',
  website TEXT NOT NULL DEFAULT '',
  approval_status TEXT NOT NULL DEFAULT 'pending',
  created_by TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tee (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  course_id INTEGER NOT NULL REFERENCES course(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  gender TEXT NOT NULL DEFAULT 'mens',
  course_rating_18 REAL NOT NULL,
  slope_rating_18 INTEGER NOT NULL,
  course_rating_front9 REAL NOT NULL,
  slope_rating_front9 INTEGER NOT NULL,
  course_rating_back9 REAL NOT NULL,
  slope_rating_back9 INTEGER NOT NULL,
  out_par INTEGER NOT NULL,
  in_par INTEGER NOT NULL,
  total_par INTEGER NOT NULL,
  total_distance INTEGER NOT NULL DEFAULT 0,
  approval_status TEXT NOT NULL DEFAULT 'pending'
);

CREATE TABLE IF NOT EXISTS hole (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  tee_id INTEGER NOT NULL REFERENCES tee(id) ON DELETE CASCADE,
  hole_number INTEGER NOT NULL,
  par INTEGER NOT NULL,
  hcp INTEGER NOT NULL,
  distance INTEGER NOT NULL DEFAULT 0,
  UNIQUE (tee_id, hole_number)
);

CREATE TABLE IF NOT EXISTS round (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id TEXT NOT NULL REFERENCES profile(id) ON DELETE CASCADE,
  course_id INTEGER NOT NULL REFERENCES course(id),
  tee_id INTEGER NOT NULL REFERENCES tee(id),
  tee_time INTEGER NOT NULL,
  notes TEXT NOT NULL DEFAULT '',
  approval_status TEXT NOT NULL DEFAULT 'pending',
  total_strokes INTEGER NOT NULL DEFAULT 0,
  existing_handicap_index REAL NOT NULL DEFAULT 54,
  updated_handicap_index REAL NOT NULL DEFAULT 54,
  score_differential REAL NOT NULL DEFAULT 0,
  exceptional_score_adjustment REAL NOT NULL DEFAULT 0,
  adjusted_gross_score REAL NOT NULL DEFAULT 0,
  adjusted_played_score INTEGER NOT NULL DEFAULT 0,
  course_handicap INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS round_user_tee_time ON round(user_id, tee_time);

CREATE TABLE IF NOT EXISTS score (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  round_id INTEGER NOT NULL REFERENCES round(id) ON DELETE CASCADE,
  hole_id INTEGER NOT NULL REFERENCES hole(id),
  strokes INTEGER NOT NULL,
  hcp_strokes INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS handicap_calculation_queue (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id TEXT NOT NULL UNIQUE,
  event_type TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  attempts INTEGER NOT NULL DEFAULT 0,
  error_message TEXT,
  version INTEGER NOT NULL DEFAULT 1,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS webhook_events (
  event_id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  status TEXT NOT NULL,
  error_message TEXT,
  retry_count INTEGER NOT NULL DEFAULT 0,
  user_id TEXT,
  processed_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS stripe_customers (
  user_id TEXT PRIMARY KEY REFERENCES profile(id) ON DELETE CASCADE,
  stripe_customer_id TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS otp_codes (
  user_id TEXT NOT NULL,
  purpose TEXT NOT NULL,
  code_hash TEXT NOT NULL,
  pending_value TEXT NOT NULL DEFAULT '',
  attempts INTEGER NOT NULL DEFAULT 0,
  expires_at INTEGER NOT NULL,
  created_at INTEGER NOT NULL,
  PRIMARY KEY (user_id, purpose)
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS profile (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL DEFAULT '',
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'user',
  handicap_index DOUBLE PRECISION NOT NULL DEFAULT 54,
  initial_handicap_index DOUBLE PRECISION NOT NULL DEFAULT 54,
  plan_selected TEXT NOT NULL DEFAULT 'free',
  subscription_status TEXT NOT NULL DEFAULT '',
  current_period_end BIGINT,
  cancel_at_period_end INTEGER NOT NULL DEFAULT 0,
  billing_version INTEGER NOT NULL DEFAULT 0,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS course (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL,
  city TEXT NOT NULL DEFAULT '',
  country TEXT NOT NULL DEFAULT '',
  website TEXT NOT NULL DEFAULT '',
  approval_status TEXT NOT NULL DEFAULT 'pending',
  created_by TEXT NOT NULL DEFAULT '',
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS tee (
  id BIGSERIAL PRIMARY KEY,
  course_id BIGINT NOT NULL REFERENCES course(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  gender TEXT NOT NULL DEFAULT 'mens',
  course_rating_18 DOUBLE PRECISION NOT NULL,
  slope_rating_18 INTEGER NOT NULL,
  course_rating_front9 DOUBLE PRECISION NOT NULL,
  slope_rating_front9 INTEGER NOT NULL,
  course_rating_back9 DOUBLE PRECISION NOT NULL,
  slope_rating_back9 INTEGER NOT NULL,
  out_par INTEGER NOT NULL,
  in_par INTEGER NOT NULL,
  total_par INTEGER NOT NULL,
  total_distance INTEGER NOT NULL DEFAULT 0,
  approval_status TEXT NOT NULL DEFAULT 'pending'
);

CREATE TABLE IF NOT EXISTS hole (
  id BIGSERIAL PRIMARY KEY,
  tee_id BIGINT NOT NULL REFERENCES tee(id) ON DELETE CASCADE,
  hole_number INTEGER NOT NULL,
  par INTEGER NOT NULL,
  hcp INTEGER NOT NULL,
  distance INTEGER NOT NULL DEFAULT 0,
  UNIQUE (tee_id, hole_number)
);

CREATE TABLE IF NOT EXISTS round (
  id BIGSERIAL PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES profile(id) ON DELETE CASCADE,
  course_id BIGINT NOT NULL REFERENCES course(id),
  tee_id BIGINT NOT NULL REFERENCES tee(id),
  tee_time BIGINT NOT NULL,
  notes TEXT NOT NULL DEFAULT '',
  approval_status TEXT NOT NULL DEFAULT 'pending',
  total_strokes INTEGER NOT NULL DEFAULT 0,
  existing_handicap_index DOUBLE PRECISION NOT NULL DEFAULT 54,
  updated_handicap_index DOUBLE PRECISION NOT NULL DEFAULT 54,
  score_differential DOUBLE PRECISION NOT NULL DEFAULT 0,
  exceptional_score_adjustment DOUBLE PRECISION NOT NULL DEFAULT 0,
  adjusted_gross_score DOUBLE PRECISION NOT NULL DEFAULT 0,
  adjusted_played_score INTEGER NOT NULL DEFAULT 0,
  course_handicap INTEGER NOT NULL DEFAULT 0,
  created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS round_user_tee_time ON round(user_id, tee_time);

CREATE TABLE IF NOT EXISTS score (
  id BIGSERIAL PRIMARY KEY,
  round_id BIGINT NOT NULL REFERENCES round(id) ON DELETE CASCADE,
  hole_id BIGINT NOT NULL REFERENCES hole(id),
  strokes INTEGER NOT NULL,
  hcp_strokes INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS handicap_calculation_queue (
  id BIGSERIAL PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  event_type TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  attempts INTEGER NOT NULL DEFAULT 0,
  error_message TEXT,
  version INTEGER NOT NULL DEFAULT 1,
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS webhook_events (
  event_id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  status TEXT NOT NULL,
  error_message TEXT,
  retry_count INTEGER NOT NULL DEFAULT 0,
  user_id TEXT,
  processed_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS stripe_customers (
  user_id TEXT PRIMARY KEY REFERENCES profile(id) ON DELETE CASCADE,
  stripe_customer_id TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS otp_codes (
  user_id TEXT NOT NULL,
  purpose TEXT NOT NULL,
  code_hash TEXT NOT NULL,
  pending_value TEXT NOT NULL DEFAULT '',
  attempts INTEGER NOT NULL DEFAULT 0,
  expires_at BIGINT NOT NULL,
  created_at BIGINT NOT NULL,
  PRIMARY KEY (user_id, purpose)
);
`
