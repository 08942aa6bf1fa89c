package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
    session_id            TEXT PRIMARY KEY,
    project_name          TEXT NOT NULL,
    project_path          TEXT NOT NULL,
    source_file           TEXT NOT NULL,
    title                 TEXT,
    git_branch            TEXT,
    started_at            TEXT NOT NULL,
    ended_at              TEXT,
    duration_secs         INTEGER NOT NULL DEFAULT 0,
    active_secs           INTEGER NOT NULL DEFAULT 0,
    input_tokens          INTEGER NOT NULL DEFAULT 0,
    output_tokens         INTEGER NOT NULL DEFAULT 0,
    cache_read_tokens     INTEGER NOT NULL DEFAULT 0,
    cache_creation_tokens INTEGER NOT NULL DEFAULT 0,
    estimated_cost_usd    REAL NOT NULL DEFAULT 0,
    turn_count            INTEGER NOT NULL DEFAULT 0,
    user_turns            INTEGER NOT NULL DEFAULT 0,
    assistant_turns       INTEGER NOT NULL DEFAULT 0,
    tool_calls            INTEGER NOT NULL DEFAULT 0,
    file_reads            INTEGER NOT NULL DEFAULT 0,
    file_writes           INTEGER NOT NULL DEFAULT 0,
    file_edits            INTEGER NOT NULL DEFAULT 0,
    bash_calls            INTEGER NOT NULL DEFAULT 0,
    tool_errors           INTEGER NOT NULL DEFAULT 0,
    compaction_count      INTEGER NOT NULL DEFAULT 0,
    peak_context_tokens   INTEGER NOT NULL DEFAULT 0,
    rework_files          INTEGER NOT NULL DEFAULT 0,
    test_after_edit_rate  REAL NOT NULL DEFAULT 0,
    thinking_chars        INTEGER NOT NULL DEFAULT 0,
    thinking_turns        INTEGER NOT NULL DEFAULT 0,
    permission_mode       TEXT,
    turn_duration_total_ms INTEGER NOT NULL DEFAULT 0,
    turn_duration_count   INTEGER NOT NULL DEFAULT 0,
    turn_duration_max_ms  INTEGER NOT NULL DEFAULT 0,
    ingested_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS turns (
    session_id            TEXT NOT NULL REFERENCES sessions(session_id) ON DELETE CASCADE,
    idx                   INTEGER NOT NULL,
    uuid                  TEXT,
    parent_uuid           TEXT,
    role                  TEXT NOT NULL,
    type                  TEXT NOT NULL,
    timestamp             TEXT NOT NULL,
    input_tokens          INTEGER NOT NULL DEFAULT 0,
    output_tokens         INTEGER NOT NULL DEFAULT 0,
    cache_read_tokens     INTEGER NOT NULL DEFAULT 0,
    cache_creation_tokens INTEGER NOT NULL DEFAULT 0,
    content_length        INTEGER NOT NULL DEFAULT 0,
    prompt_length         INTEGER NOT NULL DEFAULT 0,
    thinking_chars        INTEGER NOT NULL DEFAULT 0,
    model                 TEXT,
    stop_reason           TEXT,
    PRIMARY KEY (session_id, idx)
);

CREATE TABLE IF NOT EXISTS tool_calls (
    session_id   TEXT NOT NULL REFERENCES sessions(session_id) ON DELETE CASCADE,
    turn_idx     INTEGER NOT NULL,
    seq          INTEGER NOT NULL,
    tool_name    TEXT NOT NULL,
    file_path    TEXT,
    command      TEXT,
    description  TEXT,
    is_error     INTEGER NOT NULL DEFAULT 0,
    old_length   INTEGER NOT NULL DEFAULT 0,
    new_length   INTEGER NOT NULL DEFAULT 0,
    timestamp    TEXT NOT NULL,
    PRIMARY KEY (session_id, turn_idx, seq)
);

CREATE TABLE IF NOT EXISTS work_blocks (
    session_id    TEXT NOT NULL REFERENCES sessions(session_id) ON DELETE CASCADE,
    idx           INTEGER NOT NULL,
    started_at    TEXT NOT NULL,
    ended_at      TEXT NOT NULL,
    duration_secs INTEGER NOT NULL DEFAULT 0,
    turn_count    INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (session_id, idx)
);

CREATE TABLE IF NOT EXISTS ingest_log (
    source_file   TEXT PRIMARY KEY,
    size_bytes    INTEGER NOT NULL,
    mtime_ns      INTEGER NOT NULL,
    session_count INTEGER NOT NULL DEFAULT 0,
    ingested_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);
CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project_name);
CREATE INDEX IF NOT EXISTS idx_tool_calls_file ON tool_calls(file_path);
`
