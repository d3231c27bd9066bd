// This file is part of Relic.
//
// Relic is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Relic is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Relic.  If not, see <https://www.gnu.org/licenses/>.

// Package database is a very simple way of storing structured but
// arbitrary entry types in a flat file. Entry types are registered at
// session start; each line in the file is a key, an entry type ID and
// the entry's own fields.
package database

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/relicemu/relic/curated"
)

// arbitrary maximum number of entries
const maxEntries = 1000

const fieldSep = ","
const numHeaderFields = 2

// Activity describes what the session protects against: a reading
// session never writes the file back.
type Activity int

// List of valid Activity values.
const (
	ActivityReading Activity = iota
	ActivityModifying
	ActivityCreating
)

// Session is an open database.
type Session struct {
	path     string
	activity Activity

	entries    map[int]Entry
	entryTypes map[string]Deserialiser
}

// StartSession opens the database at path, deserialising every entry.
// The init function should register the entry types the caller expects
// with RegisterEntryType.
func StartSession(path string, activity Activity, init func(*Session) error) (*Session, error) {
	db := &Session{
		path:       path,
		activity:   activity,
		entries:    make(map[int]Entry),
		entryTypes: make(map[string]Deserialiser),
	}

	if init != nil {
		if err := init(db); err != nil {
			return nil, curated.Errorf("database: %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) || activity == ActivityReading {
			return nil, curated.Errorf("database: %v", err)
		}
		return db, nil
	}

	for i, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, fieldSep)
		if len(fields) < numHeaderFields {
			return nil, curated.Errorf("database: line %d: missing header fields", i+1)
		}

		key, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, curated.Errorf("database: line %d: bad key: %v", i+1, err)
		}

		des, ok := db.entryTypes[fields[1]]
		if !ok {
			return nil, curated.Errorf("database: line %d: unrecognised entry type [%s]", i+1, fields[1])
		}

		ent, err := des(fields[numHeaderFields:])
		if err != nil {
			return nil, curated.Errorf("database: line %d: %v", i+1, err)
		}

		db.entries[key] = ent
	}

	return db, nil
}

// EndSession closes the database, writing changes back to disk when
// commit is true.
func (db *Session) EndSession(commit bool) error {
	if !commit {
		return nil
	}
	if db.activity == ActivityReading {
		return curated.Errorf("database: cannot commit a reading session")
	}

	var b strings.Builder
	for _, key := range db.SortedKeyList() {
		ser, err := db.entries[key].Serialise()
		if err != nil {
			return curated.Errorf("database: %v", err)
		}
		fields := append([]string{strconv.Itoa(key), db.entries[key].EntryType()}, ser...)
		b.WriteString(strings.Join(fields, fieldSep))
		b.WriteString("\n")
	}

	if err := os.WriteFile(db.path, []byte(b.String()), 0644); err != nil {
		return curated.Errorf("database: %v", err)
	}
	return nil
}

// NumEntries returns the number of entries in the database.
func (db *Session) NumEntries() int {
	return len(db.entries)
}

// SortedKeyList returns the database keys in ascending order.
func (db *Session) SortedKeyList() []int {
	keys := make([]int, 0, len(db.entries))
	for k := range db.entries {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// List the entries in key order.
func (db *Session) List(output io.Writer) error {
	for _, key := range db.SortedKeyList() {
		if _, err := fmt.Fprintf(output, "%03d %s\n", key, db.entries[key].String()); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(output, "Total: %d\n", db.NumEntries()); err != nil {
		return err
	}
	return nil
}

// Add an entry to the database under the lowest unused key.
func (db *Session) Add(ent Entry) (int, error) {
	for key := 0; key < maxEntries; key++ {
		if _, ok := db.entries[key]; !ok {
			db.entries[key] = ent
			return key, nil
		}
	}
	return 0, curated.Errorf("database: maximum entries exceeded (max %d)", maxEntries)
}

// Delete the entry with the specified key.
func (db *Session) Delete(key int) error {
	ent, ok := db.entries[key]
	if !ok {
		return curated.Errorf("database: key not available (%d)", key)
	}
	ent.CleanUp()
	delete(db.entries, key)
	return nil
}
