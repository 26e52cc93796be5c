package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// WithStartTime limits iteration to samples at or after startTime.
func WithStartTime(startTime time.Time) func(*SampleIterator) {
	return func(i *SampleIterator) {
		i.startTime = &startTime
	}
}

// WithEndTime limits iteration to samples at or before endTime.
func WithEndTime(endTime time.Time) func(*SampleIterator) {
	return func(i *SampleIterator) {
		i.endTime = &endTime
	}
}

// WithTimeRange limits iteration to samples within [startTime, endTime].
func WithTimeRange(startTime, endTime time.Time) func(*SampleIterator) {
	return func(i *SampleIterator) {
		i.startTime = &startTime
		i.endTime = &endTime
	}
}

// SampleIterator iterates over one variable's recorded samples in timestamp
// order. Each iterator instance must be used from a single goroutine and
// closed after use.
type SampleIterator struct {
	db        *sql.DB
	sessionID int64
	variable  string
	startTime *time.Time
	endTime   *time.Time

	rows    *sql.Rows
	current Sample
	err     error
}

// Samples returns an iterator over the recorded samples of a variable within
// a session, in timestamp order.
func (s *Store) Samples(sessionID int64, variable string, options ...func(*SampleIterator)) (*SampleIterator, error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	iter := SampleIterator{
		db:        db,
		sessionID: sessionID,
		variable:  variable,
	}
	for _, option := range options {
		option(&iter)
	}

	return &iter, iter.init()
}

func (si *SampleIterator) init() error {
	// Time bounds are bound in UTC to match how samples are stored; the
	// aggregate span query loses the column's declared type, so unset bounds
	// are carried as the driver's raw text form instead of parsed back.
	var start, end any
	if si.startTime != nil {
		start = si.startTime.UTC()
	}
	if si.endTime != nil {
		end = si.endTime.UTC()
	}

	if start == nil || end == nil {
		var minTS, maxTS sql.NullString

		stmt, err := si.db.Prepare(selectSampleSpanSQL)
		if err != nil {
			return fmt.Errorf("preparing span query: %w", err)
		}
		defer stmt.Close()

		if err = stmt.QueryRow(si.sessionID).Scan(&minTS, &maxTS); err != nil {
			return fmt.Errorf("querying sample span: %w", err)
		}
		if !minTS.Valid || !maxTS.Valid {
			return fmt.Errorf("session %d has no samples", si.sessionID)
		}

		if start == nil {
			start = minTS.String
		}
		if end == nil {
			end = maxTS.String
		}
	}

	stmt, err := si.db.Prepare(selectSamplesSQL)
	if err != nil {
		return fmt.Errorf("preparing samples query: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.Query(si.sessionID, si.variable, start, end)
	if err != nil {
		return fmt.Errorf("querying samples: %w", err)
	}

	si.rows = rows
	return nil
}

// Next advances to the next sample. It returns false when iteration ends,
// either by exhaustion or error; check Error afterwards.
func (si *SampleIterator) Next() bool {
	if si.err != nil || !si.rows.Next() {
		return false
	}

	var sample Sample
	if si.err = si.rows.Scan(&sample.Timestamp, &sample.Variable, &sample.Value, &sample.Converted); si.err != nil {
		return false
	}

	sample.SessionID = si.sessionID
	si.current = sample
	return true
}

// Current returns the sample Next advanced to.
func (si *SampleIterator) Current() Sample {
	return si.current
}

// Error returns any error that occurred during iteration.
func (si *SampleIterator) Error() error {
	if si.err != nil {
		return si.err
	}
	return si.rows.Err()
}

// Close releases the database resources held by the iterator.
func (si *SampleIterator) Close() error {
	return si.rows.Close()
}
