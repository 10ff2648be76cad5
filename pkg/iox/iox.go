package iox

import (
	"io"
	"os"
	"path/filepath"
)

// WriteStreamToFile writes src to dstFilename. If the copy fails, the partial file is removed.
func WriteStreamToFile(dstFilename string, src io.Reader) error {
	dstFile, err := os.Create(dstFilename)
	if err != nil {
		return err
	}
	_, err = io.Copy(dstFile, src)
	if cerr := dstFile.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dstFilename)
		return err
	}
	return nil
}

// CopyFile copies srcFilename to dstFilename, creating the destination directory if necessary
func CopyFile(dstFilename, srcFilename string) error {
	src, err := os.Open(srcFilename)
	if err != nil {
		return err
	}
	defer src.Close()
	if err := os.MkdirAll(filepath.Dir(dstFilename), 0755); err != nil {
		return err
	}
	return WriteStreamToFile(dstFilename, src)
}
