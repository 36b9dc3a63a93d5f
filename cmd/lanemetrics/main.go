// Command lanemetrics turns a directory of lane record files into a lane
// offset CSV (frame,timestamp_ms,lane_offset_px).
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/banshee-data/drivecoach/internal/fsutil"
	"github.com/banshee-data/drivecoach/internal/lane"
	"github.com/banshee-data/drivecoach/internal/pipeline"
	"github.com/banshee-data/drivecoach/internal/version"
	"github.com/banshee-data/drivecoach/internal/vision"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("lanemetrics: %v", err)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("lanemetrics", flag.ContinueOnError)
	videoPath := fs.String("video", "", "Source video to probe for fps/width/frame count when meta.json is unavailable")
	useMeta := fs.Bool("meta", true, "Read video properties from <records-dir>/meta.json")
	showVersion := fs.Bool("version", false, "Print version and exit")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: lanemetrics [flags] <records-dir> <lane.csv>\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Fprintln(stdout, version.String("lanemetrics"))
		return nil
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return fmt.Errorf("expected 2 arguments, got %d", fs.NArg())
	}
	recordsDir, outPath := fs.Arg(0), fs.Arg(1)

	fsys := fsutil.OSFileSystem{}
	store := lane.NewRecordStore(fsys, recordsDir)
	meta, err := resolveMeta(store, *videoPath, *useMeta)
	if err != nil {
		return err
	}

	rows, err := pipeline.WriteLaneCSV(fsys, store, meta, outPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%d offset rows from %d frames at %.3f fps\n", rows, meta.Frames, meta.FPS)
	fmt.Fprintf(stdout, "lane csv: %s\n", outPath)
	return nil
}

// resolveMeta prefers the extraction sidecar and falls back to probing the
// video when the sidecar is absent or disabled.
func resolveMeta(store *lane.RecordStore, videoPath string, useMeta bool) (lane.VideoMeta, error) {
	if useMeta {
		meta, err := store.Meta()
		if err == nil {
			return meta, nil
		}
		if videoPath == "" {
			return lane.VideoMeta{}, fmt.Errorf("%w (pass -video to probe the source instead)", err)
		}
	}
	if videoPath == "" {
		return lane.VideoMeta{}, fmt.Errorf("-video is required when -meta=false")
	}
	return vision.Probe(videoPath)
}
