// Command winhlp-extract-corpus pulls .HLP/.GID/.ANN members out of a cpio
// archive (e.g. one produced by mounting and cpio-archiving an installer
// ISO) into a destination directory, for building a decode-test corpus.
package main

import (
	"flag"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/cavaliercoder/go-cpio"
)

var destDir = flag.String("dest", "", "directory to write extracted members into")

var wantedExt = map[string]bool{
	".hlp": true,
	".gid": true,
	".ann": true,
}

func wanted(name string) bool {
	return wantedExt[strings.ToLower(filepath.Ext(name))]
}

func extract(archivePath string) (int, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r := cpio.NewReader(f)
	n := 0
	for {
		hdr, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return n, err
		}
		if hdr.Mode&cpio.ModeDir != 0 || !wanted(hdr.Name) {
			continue
		}

		dest := filepath.Join(*destDir, filepath.Base(hdr.Name))
		out, err := os.Create(dest)
		if err != nil {
			return n, err
		}
		if _, err := io.Copy(out, r); err != nil {
			out.Close()
			return n, err
		}
		if err := out.Close(); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func main() {
	flag.Parse()
	if *destDir == "" || flag.NArg() != 1 {
		log.Fatal("syntax: winhlp-extract-corpus -dest=<directory> <archive.cpio>")
	}
	if err := os.MkdirAll(*destDir, 0755); err != nil {
		log.Fatal(err)
	}
	n, err := extract(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("extracted %d help-related files to %s", n, *destDir)
}
