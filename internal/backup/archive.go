package backup

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/filestore"
)

// maxArchiveEntry caps a single decompressed entry.
const maxArchiveEntry = 512 << 20

var ErrInvalidArchive = errors.New("invalid backup archive")

// Archive is the in-memory form of one backup: the four XML documents and
// the blobs of every annotated file keyed by content hash.
type Archive struct {
	Manifest Manifest
	Activity ActivityDoc
	InfoRef  InfoRef
	Files    FilesDoc
	Blobs    map[string][]byte
}

func writeXML(zw *zip.Writer, name string, v interface{}) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return enc.Flush()
}

// Write serialises a as a zip archive.
func (a *Archive) Write(w io.Writer) error {
	zw := zip.NewWriter(w)
	docs := []struct {
		name string
		v    interface{}
	}{
		{manifestFile, &a.Manifest},
		{activityFile, &a.Activity},
		{inforefFile, &a.InfoRef},
		{filesFile, &a.Files},
	}
	for _, d := range docs {
		if err := writeXML(zw, d.name, d.v); err != nil {
			return err
		}
	}
	for hash, data := range a.Blobs {
		bw, err := zw.Create(blobDir + filestore.BlobKey(hash))
		if err != nil {
			return err
		}
		if _, err := bw.Write(data); err != nil {
			return err
		}
	}
	return zw.Close()
}

func (a *Archive) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := a.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxArchiveEntry+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxArchiveEntry {
		return nil, fmt.Errorf("%w: %s is too large", ErrInvalidArchive, f.Name)
	}
	return data, nil
}

// ReadArchive parses a zip produced by Write. Blob entries whose content
// does not hash to their name are rejected.
func ReadArchive(data []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	a := &Archive{Blobs: map[string][]byte{}}
	targets := map[string]interface{}{
		manifestFile: &a.Manifest,
		activityFile: &a.Activity,
		inforefFile:  &a.InfoRef,
		filesFile:    &a.Files,
	}
	seen := map[string]bool{}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		body, err := readEntry(f)
		if err != nil {
			return nil, err
		}
		if v, ok := targets[f.Name]; ok {
			if err := xml.Unmarshal(body, v); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrInvalidArchive, f.Name, err)
			}
			seen[f.Name] = true
			continue
		}
		if strings.HasPrefix(f.Name, blobDir) {
			hash := f.Name[strings.LastIndex(f.Name, "/")+1:]
			if filestore.Hash(body) != hash {
				return nil, fmt.Errorf("%w: blob %s does not match its content", ErrInvalidArchive, hash)
			}
			a.Blobs[hash] = body
		}
	}
	if !seen[manifestFile] {
		return nil, fmt.Errorf("%w: %s missing", ErrInvalidArchive, manifestFile)
	}
	if !seen[activityFile] {
		return nil, fmt.Errorf("%w: %s missing", ErrInvalidArchive, activityFile)
	}
	return a, nil
}
