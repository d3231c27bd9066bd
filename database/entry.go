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

package database

import (
	"github.com/relicemu/relic/curated"
)

// Deserialiser rebuilds an entry from its serialised fields.
type Deserialiser func(fields []string) (Entry, error)

// SerialisedEntry is the Entry data represented as an array of strings.
type SerialisedEntry []string

// Entry represents the generic entry in the database.
type Entry interface {
	// EntryType returns the string that identifies the entry type in the
	// database file
	EntryType() string

	// String returns information about the entry in a human readable
	// format. the machine readable representation is returned by
	// Serialise
	String() string

	Serialise() (SerialisedEntry, error)

	// CleanUp is performed when the entry is deleted from the database
	CleanUp()
}

// RegisterEntryType tells the session what entries it may expect and how
// to deserialise them.
func (db *Session) RegisterEntryType(id string, des Deserialiser) error {
	if _, ok := db.entryTypes[id]; ok {
		return curated.Errorf("database: trying to register a duplicate entry type [%s]", id)
	}
	db.entryTypes[id] = des
	return nil
}
