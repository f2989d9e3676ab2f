// Command winhlp-mount mounts a .HLP file's internal directory read-only:
// one file per internal filename (raw bytes, named without the leading
// "|", e.g. "SYSTEM", "TOPIC") at
// the mount root, plus a topics/ directory with one plain-text file per
// topic number. It adapts the teacher's jacobsa/fuse server-loop pattern
// (internal/fuse's squashfs-backed package overlay) to a much smaller,
// flat two-directory tree — the union-overlay/multi-image machinery that
// pattern exists for has no analogue in a single opened help file.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"
	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"

	"github.com/go-winhlp/winhlp"
)

const (
	rootInode   fuseops.InodeID = fuseops.RootInodeID
	topicsInode fuseops.InodeID = 2
	firstFile   fuseops.InodeID = 3
)

// file is one flat read-only regular file this tree exposes.
type file struct {
	name string
	data []byte
}

type fs struct {
	fuseutil.NotImplementedFileSystem

	files      []file           // inode firstFile..firstFile+len(files)-1, at root
	topicFiles []file           // inode firstFile+len(files)..,                under topics/
	byInode    map[fuseops.InodeID]*file
	mounted    time.Time
}

func newFS(h *winhlp.HelpFile, topics []winhlp.Topic) *fs {
	f := &fs{mounted: time.Now(), byInode: make(map[fuseops.InodeID]*file)}

	names := h.InternalFileNames()
	sort.Strings(names)
	for _, name := range names {
		raw, err := h.InternalFile(name)
		if err != nil {
			continue
		}
		f.files = append(f.files, file{name: strings.TrimPrefix(name, "|"), data: raw})
	}
	for _, t := range topics {
		var buf bytes.Buffer
		for _, span := range t.Spans {
			buf.WriteString(span.Text)
		}
		f.topicFiles = append(f.topicFiles, file{name: fmt.Sprintf("%d.txt", t.Number), data: buf.Bytes()})
	}

	next := firstFile
	for i := range f.files {
		f.byInode[next] = &f.files[i]
		next++
	}
	for i := range f.topicFiles {
		f.byInode[next] = &f.topicFiles[i]
		next++
	}
	return f
}

func (f *fs) inodeForChild(parent fuseops.InodeID, name string) (fuseops.InodeID, *file, bool) {
	switch parent {
	case rootInode:
		if name == "topics" {
			return topicsInode, nil, true
		}
		for inode, fl := range f.byInode {
			if inode >= firstFile && inode < firstFile+fuseops.InodeID(len(f.files)) && fl.name == name {
				return inode, fl, true
			}
		}
	case topicsInode:
		base := firstFile + fuseops.InodeID(len(f.files))
		for inode, fl := range f.byInode {
			if inode >= base && fl.name == name {
				return inode, fl, true
			}
		}
	}
	return 0, nil, false
}

func (f *fs) attrsForFile(fl *file) fuseops.InodeAttributes {
	return fuseops.InodeAttributes{
		Size:  uint64(len(fl.data)),
		Nlink: 1,
		Mode:  0o444,
		Atime: f.mounted,
		Mtime: f.mounted,
		Ctime: f.mounted,
	}
}

func (f *fs) attrsForDir() fuseops.InodeAttributes {
	return fuseops.InodeAttributes{
		Nlink: 1,
		Mode:  os.ModeDir | 0o555,
		Atime: f.mounted,
		Mtime: f.mounted,
		Ctime: f.mounted,
	}
}

func (f *fs) StatFS(ctx context.Context, op *fuseops.StatFSOp) error {
	op.BlockSize = 4096
	op.Blocks = 1
	op.IoSize = 65536
	return nil
}

func (f *fs) LookUpInode(ctx context.Context, op *fuseops.LookUpInodeOp) error {
	inode, fl, ok := f.inodeForChild(op.Parent, op.Name)
	if !ok {
		return fuse.ENOENT
	}
	op.Entry.Child = inode
	if fl != nil {
		op.Entry.Attributes = f.attrsForFile(fl)
	} else {
		op.Entry.Attributes = f.attrsForDir()
	}
	return nil
}

func (f *fs) GetInodeAttributes(ctx context.Context, op *fuseops.GetInodeAttributesOp) error {
	if op.Inode == rootInode || op.Inode == topicsInode {
		op.Attributes = f.attrsForDir()
		return nil
	}
	fl, ok := f.byInode[op.Inode]
	if !ok {
		return fuse.ENOENT
	}
	op.Attributes = f.attrsForFile(fl)
	return nil
}

func (f *fs) OpenDir(ctx context.Context, op *fuseops.OpenDirOp) error {
	return fuse.ENOSYS
}

func (f *fs) ReadDir(ctx context.Context, op *fuseops.ReadDirOp) error {
	var entries []fuseutil.Dirent
	switch op.Inode {
	case rootInode:
		entries = append(entries, fuseutil.Dirent{
			Offset: fuseops.DirOffset(len(entries) + 1),
			Inode:  topicsInode,
			Name:   "topics",
			Type:   fuseutil.DT_Directory,
		})
		for i, fl := range f.files {
			entries = append(entries, fuseutil.Dirent{
				Offset: fuseops.DirOffset(len(entries) + 1),
				Inode:  firstFile + fuseops.InodeID(i),
				Name:   fl.name,
				Type:   fuseutil.DT_File,
			})
		}
	case topicsInode:
		base := firstFile + fuseops.InodeID(len(f.files))
		for i, fl := range f.topicFiles {
			entries = append(entries, fuseutil.Dirent{
				Offset: fuseops.DirOffset(len(entries) + 1),
				Inode:  base + fuseops.InodeID(i),
				Name:   fl.name,
				Type:   fuseutil.DT_File,
			})
		}
	default:
		return fuse.ENOENT
	}

	if op.Offset > fuseops.DirOffset(len(entries)) {
		return fuse.EIO
	}
	for _, e := range entries[op.Offset:] {
		n := fuseutil.WriteDirent(op.Dst[op.BytesRead:], e)
		if n == 0 {
			break
		}
		op.BytesRead += n
	}
	return nil
}

func (f *fs) OpenFile(ctx context.Context, op *fuseops.OpenFileOp) error {
	return fuse.ENOSYS
}

func (f *fs) ReadFile(ctx context.Context, op *fuseops.ReadFileOp) error {
	fl, ok := f.byInode[op.Inode]
	if !ok {
		return fuse.EIO
	}
	if int(op.Offset) >= len(fl.data) {
		op.BytesRead = 0
		return nil
	}
	op.BytesRead = copy(op.Dst, fl.data[op.Offset:])
	return nil
}

func mount(mountpoint, path string) error {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return err
	}
	h, err := winhlp.Open(raw, winhlp.OpenOptions{})
	if err != nil {
		return err
	}
	topics, err := h.Topics(context.Background())
	if err != nil {
		return err
	}

	server := fuseutil.NewFileSystemServer(newFS(h, topics))
	mfs, err := fuse.Mount(mountpoint, server, &fuse.MountConfig{
		FSName:   "winhlp",
		ReadOnly: true,
		Options: map[string]string{
			"allow_other": "",
		},
		EnableNoOpenSupport:    true,
		EnableNoOpendirSupport: true,
	})
	if err != nil {
		return xerrors.Errorf("fuse.Mount: %w", err)
	}

	var st unix.Statfs_t
	if err := unix.Statfs(mountpoint, &st); err == nil {
		log.Printf("mounted %s on %s (host fs free: %d blocks of %d bytes)", path, mountpoint, st.Bfree, st.Bsize)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		syscall.Unmount(mountpoint, 0)
	}()

	return mfs.Join(context.Background())
}

func main() {
	flag.Parse()
	if flag.NArg() != 2 {
		log.Fatal("syntax: winhlp-mount <file.hlp> <mountpoint>")
	}
	if err := mount(flag.Arg(1), flag.Arg(0)); err != nil {
		log.Fatal(err)
	}
}
