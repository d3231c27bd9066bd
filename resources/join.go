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

// Package resources locates the files the emulation keeps between
// sessions, the regression database most notably.
package resources

import (
	"os"
	"path/filepath"
)

// the directory under the user's config directory where everything lives
const baseDir = "relic"

// JoinPath prepends the supplied path with an OS specific base path and
// creates all folders necessary to reach the end of the sub-path. It does
// not otherwise touch or create the file.
func JoinPath(path ...string) (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}

	p := filepath.Join(base, baseDir, filepath.Join(path...))

	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return "", err
	}

	return p, nil
}
