package metadata

// Schema contains the SQL statements to create the metadata database schema.
// Timestamps are stored as Unix nanoseconds so they sort and aggregate as integers.
const Schema = `
CREATE TABLE IF NOT EXISTS buckets (
    id                 INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id         TEXT NOT NULL,
    name               TEXT NOT NULL,
    description        TEXT NOT NULL DEFAULT '',
    is_public          BOOLEAN NOT NULL DEFAULT FALSE,
    max_file_size      INTEGER NOT NULL,
    allowed_mime_types TEXT NOT NULL DEFAULT '[]',
    created_at         INTEGER NOT NULL,
    updated_at         INTEGER NOT NULL,
    UNIQUE (project_id, name)
);

-- Folders are path markers; the parent relation is derived from the path.
CREATE TABLE IF NOT EXISTS folders (
    bucket_id  INTEGER NOT NULL,
    path       TEXT NOT NULL,
    name       TEXT NOT NULL,
    parent     TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (bucket_id) REFERENCES buckets(id) ON DELETE CASCADE,
    UNIQUE (bucket_id, path)
);

CREATE TABLE IF NOT EXISTS files (
    id            TEXT PRIMARY KEY,
    bucket_id     INTEGER NOT NULL,
    original_name TEXT NOT NULL,
    stored_name   TEXT NOT NULL,
    folder_path   TEXT NOT NULL DEFAULT '',
    mime_type     TEXT NOT NULL DEFAULT '',
    size          INTEGER NOT NULL,
    checksum      TEXT NOT NULL DEFAULT '',
    is_public     BOOLEAN NOT NULL DEFAULT FALSE,
    author        TEXT NOT NULL DEFAULT '',
    locator       TEXT NOT NULL,
    created_at    INTEGER NOT NULL,
    updated_at    INTEGER NOT NULL,
    FOREIGN KEY (bucket_id) REFERENCES buckets(id) ON DELETE CASCADE,
    UNIQUE (bucket_id, stored_name)
);

-- Blob deletes that failed and wait for reconciliation.
CREATE TABLE IF NOT EXISTS pending_purges (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    bucket_id  INTEGER NOT NULL,
    locator    TEXT NOT NULL,
    attempts   INTEGER NOT NULL DEFAULT 0,
    last_error TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    UNIQUE (locator)
);

CREATE INDEX IF NOT EXISTS idx_buckets_project ON buckets(project_id);
CREATE INDEX IF NOT EXISTS idx_folders_parent ON folders(bucket_id, parent);
CREATE INDEX IF NOT EXISTS idx_files_folder ON files(bucket_id, folder_path);
`
