package db

const postgresSchema = `
CREATE TABLE IF NOT EXISTS voltage_readings (
	id          BIGSERIAL PRIMARY KEY,
	device_id   TEXT NOT NULL,
	voltage     DOUBLE PRECISION NOT NULL,
	min_voltage DOUBLE PRECISION,
	max_voltage DOUBLE PRECISION,
	avg_voltage DOUBLE PRECISION,
	recorded_at TIMESTAMPTZ NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_voltage_readings_device_time
	ON voltage_readings (device_id, recorded_at DESC, id DESC);

CREATE INDEX IF NOT EXISTS idx_voltage_readings_time
	ON voltage_readings (recorded_at DESC, id DESC);

CREATE TABLE IF NOT EXISTS welding_sessions (
	id            BIGSERIAL PRIMARY KEY,
	session_id    TEXT NOT NULL UNIQUE,
	device_id     TEXT NOT NULL,
	start_time    TIMESTAMPTZ NOT NULL,
	end_time      TIMESTAMPTZ,
	min_voltage   DOUBLE PRECISION,
	max_voltage   DOUBLE PRECISION,
	avg_voltage   DOUBLE PRECISION,
	reading_count BIGINT,
	duration      BIGINT,
	operator      TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_welding_sessions_start
	ON welding_sessions (start_time DESC);

CREATE INDEX IF NOT EXISTS idx_welding_sessions_device_open
	ON welding_sessions (device_id) WHERE end_time IS NULL;
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS voltage_readings (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	device_id   TEXT NOT NULL,
	voltage     REAL NOT NULL,
	min_voltage REAL,
	max_voltage REAL,
	avg_voltage REAL,
	recorded_at DATETIME NOT NULL,
	created_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_voltage_readings_device_time
	ON voltage_readings (device_id, recorded_at DESC, id DESC);

CREATE INDEX IF NOT EXISTS idx_voltage_readings_time
	ON voltage_readings (recorded_at DESC, id DESC);

CREATE TABLE IF NOT EXISTS welding_sessions (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id    TEXT NOT NULL UNIQUE,
	device_id     TEXT NOT NULL,
	start_time    DATETIME NOT NULL,
	end_time      DATETIME,
	min_voltage   REAL,
	max_voltage   REAL,
	avg_voltage   REAL,
	reading_count INTEGER,
	duration      INTEGER,
	operator      TEXT NOT NULL,
	created_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_welding_sessions_start
	ON welding_sessions (start_time DESC);
`
