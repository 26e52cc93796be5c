package storage

import (
	_ "embed"
)

const (
	insertSessionSQL = `
INSERT INTO sessions (
                      start_time,
                      input_endpoint,
                      output_endpoint,
                      config)
VALUES (?, ?, ?, ?)`

	selectSessionSQL = `
SELECT
    id,
    start_time,
    input_endpoint,
    output_endpoint,
    config
FROM sessions
WHERE
    id = ?`

	selectSessionsSQL = `
SELECT
    id,
    start_time,
    input_endpoint,
    output_endpoint,
    config
FROM sessions
ORDER BY start_time`

	insertSampleSQL = `
INSERT INTO samples (session_id,
                     timestamp,
                     variable,
                     value,
                     converted)
VALUES (?, ?, ?, ?, ?)`

	selectVariablesSQL = `
SELECT DISTINCT variable
FROM samples
WHERE session_id = ?
ORDER BY variable`

	selectSamplesSQL = `
SELECT
    timestamp,
    variable,
    value,
    converted
FROM samples
WHERE
    session_id = ?
    AND variable = ?
    AND timestamp BETWEEN ? AND ?
ORDER BY timestamp`

	selectSampleSpanSQL = `
SELECT
    MIN(timestamp),
    MAX(timestamp)
FROM samples
WHERE session_id = ?`
)

//go:embed schema.sql
var schemaSQL string
