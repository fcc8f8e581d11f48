//go:build !linux

package storage

import "errors"

var errDetectUnsupported = errors.New("filesystem detection unsupported")

func filesystemType(string) (string, error) {
	return "", errDetectUnsupported
}
