package mysql

const ensureUserSQL = `
INSERT IGNORE INTO users (id) VALUES (?)
`

const insertHistorySQL = `
INSERT INTO search_history
  (id, user_id, created_at, city, strategy, query, results)
VALUES
  (?, ?, ?, ?, ?, ?, ?)
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

// seq breaks ties between entries recorded in the same microsecond.
const listHistorySQL = `
SELECT id, created_at, city, strategy, JSON_LENGTH(results)
FROM search_history
WHERE user_id = ?
ORDER BY seq DESC
LIMIT ?
`

const getHistorySQL = `
SELECT id, user_id, created_at, query, results
FROM search_history
WHERE id = ? AND user_id = ?
`
