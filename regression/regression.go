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

// Package regression records the frame digest a ROM produces after a
// number of emulated frames, and checks later runs against the recorded
// value. Entries live in a database file under the user's config
// directory.
package regression

import (
	"fmt"
	"io"

	"github.com/relicemu/relic/curated"
	"github.com/relicemu/relic/database"
	"github.com/relicemu/relic/resources"
)

const regressionDBFile = "regressionDB"

// overridden in tests
var dbPathResolver = func() (string, error) {
	return resources.JoinPath(regressionDBFile)
}

// Regressor is a database entry that can run itself.
type Regressor interface {
	database.Entry

	// regress runs the test. When newEntry is true the result is recorded
	// in the entry rather than compared against it.
	regress(newEntry bool, output io.Writer) (bool, error)
}

func initDBSession(db *database.Session) error {
	return db.RegisterEntryType(frameEntryType, deserialiseFrameEntry)
}

func startSession(activity database.Activity) (*database.Session, error) {
	path, err := dbPathResolver()
	if err != nil {
		return nil, curated.Errorf("regression: %v", err)
	}
	return database.StartSession(path, activity, initDBSession)
}

// RegressList displays all entries in the database.
func RegressList(output io.Writer) error {
	db, err := startSession(database.ActivityReading)
	if err != nil {
		return err
	}
	defer db.EndSession(false)

	return db.List(output)
}

// RegressAdd runs a new test and stores the result in the database.
func RegressAdd(output io.Writer, reg Regressor) error {
	db, err := startSession(database.ActivityCreating)
	if err != nil {
		return err
	}

	if _, err := reg.regress(true, output); err != nil {
		db.EndSession(false)
		return err
	}

	key, err := db.Add(reg)
	if err != nil {
		db.EndSession(false)
		return err
	}

	fmt.Fprintf(output, "added: %03d %s\n", key, reg.String())
	return db.EndSession(true)
}

// RegressDelete removes an entry from the database.
func RegressDelete(output io.Writer, key int) error {
	db, err := startSession(database.ActivityModifying)
	if err != nil {
		return err
	}

	if err := db.Delete(key); err != nil {
		db.EndSession(false)
		return err
	}

	fmt.Fprintf(output, "deleted test #%d from regression database\n", key)
	return db.EndSession(true)
}

// RegressRun runs the tests with the specified keys, or every test when
// no keys are given. Returns an error when any test fails.
func RegressRun(output io.Writer, keys ...int) error {
	db, err := startSession(database.ActivityReading)
	if err != nil {
		return err
	}
	defer db.EndSession(false)

	var numRun, numFail int

	_, err = db.SelectKeys(func(key int, ent database.Entry) error {
		reg, ok := ent.(Regressor)
		if !ok {
			return curated.Errorf("regression: entry %03d is not a regression test", key)
		}

		numRun++
		ok, err := reg.regress(false, output)
		if err != nil {
			return err
		}
		if ok {
			fmt.Fprintf(output, "succeed: %03d %s\n", key, reg.String())
		} else {
			numFail++
			fmt.Fprintf(output, "fail: %03d %s\n", key, reg.String())
		}
		return nil
	}, keys...)
	if err != nil {
		return err
	}

	fmt.Fprintf(output, "ran %d tests, %d failed\n", numRun, numFail)
	if numFail > 0 {
		return curated.Errorf("regression: %d of %d tests failed", numFail, numRun)
	}
	return nil
}
