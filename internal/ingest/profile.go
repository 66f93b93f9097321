package ingest

import (
	"strconv"
	"time"

	"github.com/zeebo/xxh3"
)

// Profile counts the rows the cleaning stage is expected to drop.
type Profile struct {
	Rows int64

	// NullKeys counts rows whose key column is NULL.
	NullKeys int64

	// Duplicates counts exact repeats among rows with a non-null key.
	Duplicates int64
}

// ExpectedClean returns the row count after the null-key filter and
// full-row dedup.
func (p Profile) ExpectedClean() int64 {
	return p.Rows - p.NullKeys - p.Duplicates
}

// profiler accumulates a Profile from typed rows.
type profiler struct {
	key     int
	profile Profile
	seen    map[xxh3.Uint128]struct{}
	buf     []byte
}

func newProfiler(key int) *profiler {
	return &profiler{key: key, seen: make(map[xxh3.Uint128]struct{})}
}

func (p *profiler) add(row []any) {
	p.profile.Rows++
	if row[p.key] == nil {
		p.profile.NullKeys++
		return
	}
	fp := p.fingerprint(row)
	if _, dup := p.seen[fp]; dup {
		p.profile.Duplicates++
		return
	}
	p.seen[fp] = struct{}{}
}

// fingerprint hashes the typed values so rows equal under SQL DISTINCT
// collide, NULLs included.
func (p *profiler) fingerprint(row []any) xxh3.Uint128 {
	b := p.buf[:0]
	for _, v := range row {
		switch x := v.(type) {
		case nil:
			b = append(b, 0)
		case int64:
			b = append(b, 'i')
			b = strconv.AppendInt(b, x, 10)
		case float64:
			b = append(b, 'f')
			if x == 0 {
				x = 0 // -0 equals 0 under DISTINCT
			}
			b = strconv.AppendFloat(b, x, 'g', -1, 64)
		case bool:
			b = append(b, 'b')
			b = strconv.AppendBool(b, x)
		case time.Time:
			b = append(b, 't')
			b = x.AppendFormat(b, time.RFC3339Nano)
		case string:
			b = append(b, 's')
			b = append(b, x...)
		}
		b = append(b, 0x1f)
	}
	p.buf = b
	return xxh3.Hash128(b)
}
