// Command winhlp-serve renders a .HLP file's topics as HTML over HTTP: the
// "renderers can be built on top of the decoder" half of the project's
// purpose, made concrete. Topic pages are rendered dynamically; extracted
// bitmaps are written once to a temp directory and served through it so
// gzipped.FileServer's pre-gzip-on-disk-cache behavior applies to them.
package main

import (
	"context"
	"flag"
	"fmt"
	"html"
	"io/ioutil"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"

	"github.com/lpar/gzipped/v2"
	"golang.org/x/sync/errgroup"

	"github.com/go-winhlp/winhlp"
)

var (
	listen = flag.String("listen", "localhost:8089", "[host]:port to listen on")
	gzip   = flag.Bool("gzip", true, "serve bitmap responses gzip-compressed when the client accepts it")
)

type server struct {
	help   *winhlp.HelpFile
	topics []winhlp.Topic
}

func (s *server) index(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "<html><body><h1>%s</h1><ul>\n", html.EscapeString(s.help.System.Title))
	for _, t := range s.topics {
		title := t.Title
		if title == "" {
			title = fmt.Sprintf("topic %d", t.Number)
		}
		fmt.Fprintf(w, `<li><a href="/topic/%d">%s</a></li>`+"\n", t.Number, html.EscapeString(title))
	}
	fmt.Fprint(w, "</ul></body></html>\n")
}

func (s *server) topic(w http.ResponseWriter, r *http.Request) {
	numStr := r.URL.Path[len("/topic/"):]
	num, err := strconv.Atoi(numStr)
	if err != nil {
		http.Error(w, "bad topic number", http.StatusBadRequest)
		return
	}
	for _, t := range s.topics {
		if int(t.Number) != num {
			continue
		}
		fmt.Fprintf(w, "<html><body><h1>%s</h1><p>", html.EscapeString(t.Title))
		for _, span := range t.Spans {
			text := html.EscapeString(span.Text)
			if span.Hyperlink {
				fmt.Fprintf(w, `<a href="#">%s</a>`, text)
			} else {
				fmt.Fprint(w, text)
			}
		}
		fmt.Fprint(w, "</p></body></html>\n")
		return
	}
	http.NotFound(w, r)
}

// extractBitmaps decodes every |bmN file to a BMP and writes it into dir,
// so the gzip-aware static file server has something on disk to serve.
func extractBitmaps(h *winhlp.HelpFile, dir string) error {
	for i := 0; ; i++ {
		pic, err := h.ExtractBitmap(i)
		if err != nil {
			break
		}
		bmp, err := pic.ToBMP()
		if err != nil {
			log.Printf("bitmap %d: %v", i, err)
			continue
		}
		if err := ioutil.WriteFile(filepath.Join(dir, fmt.Sprintf("%d.bmp", i)), bmp, 0644); err != nil {
			return err
		}
	}
	return nil
}

func run(ctx context.Context, path string) error {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return err
	}
	h, err := winhlp.Open(raw, winhlp.OpenOptions{})
	if err != nil {
		return err
	}
	topics, err := h.Topics(ctx)
	if err != nil {
		return err
	}

	bmpDir, err := ioutil.TempDir("", "winhlp-serve-bitmaps")
	if err != nil {
		return err
	}
	defer os.RemoveAll(bmpDir)
	if err := extractBitmaps(h, bmpDir); err != nil {
		return err
	}

	s := &server{help: h, topics: topics}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.index)
	mux.HandleFunc("/topic/", s.topic)
	if *gzip {
		mux.Handle("/bitmap/", http.StripPrefix("/bitmap/", gzipped.FileServer(http.Dir(bmpDir))))
	} else {
		mux.Handle("/bitmap/", http.StripPrefix("/bitmap/", http.FileServer(http.Dir(bmpDir))))
	}

	ln, err := net.Listen("tcp", *listen)
	if err != nil {
		return err
	}
	log.Printf("serving %s on http://%s", path, ln.Addr())
	httpServer := &http.Server{Handler: mux}

	var eg errgroup.Group
	eg.Go(func() error { return httpServer.Serve(ln) })
	eg.Go(func() error {
		<-ctx.Done()
		return httpServer.Shutdown(context.Background())
	})
	return eg.Wait()
}

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		log.Fatal("syntax: winhlp-serve [-listen=host:port] <file.hlp>")
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if err := run(ctx, flag.Arg(0)); err != nil {
		log.Fatal(err)
	}
}
