// Command winhlp dumps a WinHelp (.HLP/.GID) file's |SYSTEM title and
// version and its decoded topics as JSON.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"io/ioutil"
	"log"
	"os"

	"github.com/klauspost/pgzip"
	"github.com/mattn/go-isatty"

	"github.com/google/renameio"

	"github.com/go-winhlp/winhlp"
)

var (
	verbose = flag.Bool("v", false, "enable verbose diagnostics")
	out     = flag.String("o", "", "write the JSON dump to this path instead of stdout")
	gzipOut = flag.Bool("gzip", false, "gzip-compress the dump (via pgzip, for large files)")
	color   = flag.Bool("color", false, "force ANSI-colored diagnostics even when not attached to a terminal")
)

// dump is the JSON shape written by the CLI: the |SYSTEM title and version,
// plus every decoded topic.
type dump struct {
	Title  string         `json:"title"`
	Major  uint16         `json:"major"`
	Minor  uint16         `json:"minor"`
	Topics []winhlp.Topic `json:"topics"`
}

func diagColor() bool {
	if *color {
		return true
	}
	return isatty.IsTerminal(os.Stderr.Fd())
}

func debugf(format string, args ...interface{}) {
	if !*verbose {
		return
	}
	if diagColor() {
		log.Printf("\x1b[36m"+format+"\x1b[0m", args...)
		return
	}
	log.Printf(format, args...)
}

func run(path string) error {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return err
	}

	h, err := winhlp.Open(raw, winhlp.OpenOptions{Verbose: *verbose})
	if err != nil {
		return err
	}

	topics, err := h.Topics(context.Background())
	if err != nil {
		return err
	}
	debugf("decoded %d topics from %s", len(topics), path)

	d := dump{
		Title:  h.System.Title,
		Major:  h.System.Header.Major,
		Minor:  h.System.Header.Minor,
		Topics: topics,
	}

	body, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	body = append(body, '\n')

	if *gzipOut {
		body, err = gzipBytes(body)
		if err != nil {
			return err
		}
	}

	if *out == "" {
		_, err := os.Stdout.Write(body)
		return err
	}
	return renameio.WriteFile(*out, body, 0o644)
}

func gzipBytes(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := pgzip.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		log.Fatal("syntax: winhlp [-v] [-o path] [-gzip] <file.hlp>")
	}
	if err := run(flag.Arg(0)); err != nil {
		log.Fatal(err)
	}
}
