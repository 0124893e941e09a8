package postgres

// schemaSQL is the idempotent schema applied at startup.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS memories (
    user_id    TEXT             NOT NULL,
    persona    TEXT             NOT NULL,
    key        TEXT             NOT NULL,
    value      TEXT             NOT NULL,
    confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ      NOT NULL DEFAULT now(),
    expires_at TIMESTAMPTZ      NOT NULL,
    PRIMARY KEY (user_id, persona, key)
);

CREATE INDEX IF NOT EXISTS idx_memories_recall
    ON memories (user_id, persona, expires_at, created_at DESC);

CREATE INDEX IF NOT EXISTS idx_memories_expires_at
    ON memories (expires_at);

CREATE TABLE IF NOT EXISTS tasks (
    id          UUID        PRIMARY KEY,
    title       TEXT        NOT NULL,
    description TEXT        NOT NULL DEFAULT '',
    priority    TEXT        NOT NULL DEFAULT 'medium',
    status      TEXT        NOT NULL DEFAULT 'pending',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks (created_at DESC);

CREATE TABLE IF NOT EXISTS reports (
    id         UUID        PRIMARY KEY,
    type       TEXT        NOT NULL,
    title      TEXT        NOT NULL,
    content    TEXT        NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports (created_at DESC);

CREATE TABLE IF NOT EXISTS chat_history (
    id                  UUID             PRIMARY KEY,
    user_message        TEXT             NOT NULL,
    assistant_response  TEXT             NOT NULL DEFAULT '',
    model               TEXT             NOT NULL DEFAULT '',
    temperature         DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at          TIMESTAMPTZ      NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_chat_history_created_at ON chat_history (created_at DESC);
`
