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

import "github.com/relicemu/relic/curated"

// SelectAll entries in the database in key order. onSelect can be nil.
// Returns the last entry visited, or the entry being visited when
// onSelect returned an error.
func (db *Session) SelectAll(onSelect func(int, Entry) error) (Entry, error) {
	return db.SelectKeys(onSelect)
}

// SelectKeys visits the entries with the specified keys, or every entry
// when no keys are given. onSelect can be nil.
func (db *Session) SelectKeys(onSelect func(int, Entry) error, keys ...int) (Entry, error) {
	if onSelect == nil {
		onSelect = func(int, Entry) error { return nil }
	}

	keyList := keys
	if len(keyList) == 0 {
		keyList = db.SortedKeyList()
	}

	var entry Entry
	for _, key := range keyList {
		ent, ok := db.entries[key]
		if !ok {
			return entry, curated.Errorf("database: key not available (%d)", key)
		}
		entry = ent
		if err := onSelect(key, ent); err != nil {
			return entry, err
		}
	}

	return entry, nil
}
