// volinfo loads image files and describes the images they hold. It can
// also convert them to another element type and write them back out.
//
// Usage:
//
//	volinfo [-json] [-get path] [-select glob] [-type t] [-o dst] file|dir...
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/match"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/robert-malhotra/go-volume/buffer"
	"github.com/robert-malhotra/go-volume/codec"
	"github.com/robert-malhotra/go-volume/format"
	"github.com/robert-malhotra/go-volume/internal/config"
	"github.com/robert-malhotra/go-volume/internal/logging"
	"github.com/robert-malhotra/go-volume/volume"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "volinfo:", err)
		os.Exit(1)
	}
}

type flags struct {
	json    bool
	get     string
	sel     string
	dialect string
	typ     string
	out     string
	suffix  string
}

func parseFlags(args []string, stderr io.Writer) (flags, []string, error) {
	var f flags
	fs := flag.NewFlagSet("volinfo", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&f.json, "json", false, "print a JSON document")
	fs.StringVar(&f.get, "get", "", "print only this gjson path of the JSON document")
	fs.StringVar(&f.sel, "select", "", "keep images whose identifier matches this glob")
	fs.StringVar(&f.dialect, "dialect", "", "format dialect for reading and writing")
	fs.StringVar(&f.typ, "type", "", "convert images to this element type")
	fs.StringVar(&f.out, "o", "", "write the images to this file")
	fs.StringVar(&f.suffix, "suffix", "", "format suffixes for -o instead of those of the file name")
	if err := fs.Parse(args); err != nil {
		return f, nil, err
	}
	if fs.NArg() == 0 {
		return f, nil, errors.New("no input files")
	}
	return f, fs.Args(), nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	f, paths, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(cfg, stderr)
	if err != nil {
		return err
	}
	reg := codec.NewRegistry(format.WithLogger(log))

	var progress format.Progress
	if logging.IsTerminal(stderr) {
		progress = format.ProgressFunc(func(done, total int, msg string) {
			fmt.Fprintf(stderr, "\r\033[K%d/%d %s", done, total, msg)
		})
	}
	images, rejected, err := reg.LoadImages(ctx, paths, f.dialect, progress, cfg.VolumeOptions()...)
	if progress != nil {
		fmt.Fprintln(stderr)
	}
	if err != nil {
		return err
	}
	for _, r := range rejected {
		log.WithField("path", r).Warn("rejected")
	}

	if f.sel != "" {
		kept := images[:0]
		for _, img := range images {
			if match.Match(img.Identify(), f.sel) {
				kept = append(kept, img)
			}
		}
		images = kept
	}

	if f.typ != "" {
		t, ok := buffer.ParseType(f.typ)
		if !ok {
			return fmt.Errorf("unknown element type %q", f.typ)
		}
		al := buffer.NewAllocator(uint64(cfg.MemoryLimit))
		for i, img := range images {
			if images[i], err = retype(img, t, al, cfg.VolumeOptions()); err != nil {
				return fmt.Errorf("converting %s: %w", img.Identify(), err)
			}
		}
		log.WithFields(logrus.Fields{
			"type":  t.String(),
			"bytes": humanize.IBytes(al.Stats().Peak),
			"limit": cfg.MemoryLimit.String(),
		}).Debug("converted")
	}

	if f.out != "" {
		if err := reg.Write(ctx, images, f.out, f.suffix, f.dialect, progress); err != nil {
			return err
		}
	}

	if f.json || f.get != "" {
		doc, err := document(images, rejected)
		if err != nil {
			return err
		}
		return printJSON(stdout, doc, f.get)
	}
	return printText(stdout, images, rejected)
}

// retype returns img gathered into a single chunk of type t.
func retype(img *volume.Image, t buffer.ElementType, al *buffer.Allocator, opts []volume.Option) (*volume.Image, error) {
	buf, err := img.CopyTo(t, buffer.AutoScale, buffer.WithAllocator(al))
	if err != nil {
		return nil, err
	}
	c, err := volume.NewChunk(buf, img.Geometry(), img.Chunks()[0].Props().Clone())
	if err != nil {
		buf.Release()
		return nil, err
	}
	images, _, err := volume.BuildImages([]*volume.Chunk{c}, opts...)
	if err != nil {
		return nil, err
	}
	if len(images) != 1 {
		c.Release()
		return nil, errors.New("converted chunk does not form an image")
	}
	img.Release()
	return images[0], nil
}

func describe(img *volume.Image) (string, error) {
	doc := "{}"
	var err error
	set := func(path string, v any) {
		if err == nil {
			doc, err = sjson.Set(doc, path, v)
		}
	}
	g, cg := img.Geometry(), img.ChunkGeometry()
	set("id", img.Identify())
	set("shape", g.ShapeName())
	set("geometry", g[:])
	set("chunkGeometry", cg[:])
	set("chunks", img.Len())
	set("type", img.Type().String())
	if lo, hi, ok := img.Range(); ok {
		set("range.min", lo)
		set("range.max", hi)
	}
	if missing := img.Missing(); len(missing) > 0 {
		set("missing", missing)
	}
	if err != nil {
		return "", err
	}
	raw, err := img.Props().MarshalJSON()
	if err != nil {
		return "", err
	}
	return sjson.SetRaw(doc, "props", string(raw))
}

func document(images []*volume.Image, rejected []string) (string, error) {
	doc := `{"images":[]}`
	for _, img := range images {
		d, err := describe(img)
		if err != nil {
			return "", err
		}
		if doc, err = sjson.SetRaw(doc, "images.-1", d); err != nil {
			return "", err
		}
	}
	if rejected == nil {
		rejected = []string{}
	}
	return sjson.Set(doc, "rejected", rejected)
}

func printJSON(w io.Writer, doc, path string) error {
	out := []byte(doc)
	if path != "" {
		res := gjson.Get(doc, path)
		if !res.Exists() {
			return fmt.Errorf("nothing at %q", path)
		}
		if !res.IsObject() && !res.IsArray() {
			_, err := fmt.Fprintln(w, res.String())
			return err
		}
		out = []byte(res.Raw)
	}
	out = pretty.Pretty(out)
	if logging.IsTerminal(w) {
		out = pretty.Color(out, nil)
	}
	_, err := w.Write(out)
	return err
}

func printText(w io.Writer, images []*volume.Image, rejected []string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, img := range images {
		fmt.Fprintf(tw, "%s\n", img.Identify())
		fmt.Fprintf(tw, "  geometry\t%s %s (%d chunks of %s)\n", img.Geometry().ShapeName(), img.Geometry(), img.Len(), img.ChunkGeometry())
		fmt.Fprintf(tw, "  type\t%s\n", img.Type())
		if lo, hi, ok := img.Range(); ok {
			fmt.Fprintf(tw, "  range\t%g .. %g\n", lo, hi)
		}
		if missing := img.Missing(); len(missing) > 0 {
			fmt.Fprintf(tw, "  missing\t%s\n", strings.Join(missing, ", "))
		}
		for _, path := range img.Props().Paths() {
			v, _ := img.Props().Get(path)
			fmt.Fprintf(tw, "  %s\t%s\n", path, v)
		}
	}
	for _, r := range rejected {
		fmt.Fprintf(tw, "rejected\t%s\n", r)
	}
	return tw.Flush()
}
