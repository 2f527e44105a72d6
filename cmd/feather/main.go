// Command feather manages persistent vector indexes from the shell:
// create, add, search, snapshot/restore, and push/pull against a blob
// store (local directory, MinIO, or S3).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/featherdb/feather"
	"github.com/featherdb/feather/blobstore"
	minioblob "github.com/featherdb/feather/blobstore/minio"
	s3blob "github.com/featherdb/feather/blobstore/s3"
	"github.com/featherdb/feather/npy"
	"github.com/featherdb/feather/snapshot"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

func main() {
	// Define commands
	newCmd := flag.NewFlagSet("new", flag.ExitOnError)
	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	searchCmd := flag.NewFlagSet("search", flag.ExitOnError)
	statsCmd := flag.NewFlagSet("stats", flag.ExitOnError)
	snapshotCmd := flag.NewFlagSet("snapshot", flag.ExitOnError)
	restoreCmd := flag.NewFlagSet("restore", flag.ExitOnError)
	pushCmd := flag.NewFlagSet("push", flag.ExitOnError)
	pullCmd := flag.NewFlagSet("pull", flag.ExitOnError)

	// New flags
	newIndex := newCmd.String("index", "index.feather", "Index file")
	newDim := newCmd.Int("dim", 0, "Vector dimension")

	// Add flags
	addIndex := addCmd.String("index", "index.feather", "Index file")
	addID := addCmd.Uint64("id", 0, "Entry id")
	addVector := addCmd.String("vector", "", "Comma-separated floats (e.g. \"0.1,0.2,0.3\")")
	addNpy := addCmd.String("npy", "", "Read the vector from a .npy file instead")

	// Search flags
	searchIndex := searchCmd.String("index", "index.feather", "Index file")
	searchQuery := searchCmd.String("query", "", "Comma-separated floats")
	searchNpy := searchCmd.String("npy", "", "Read the query vector from a .npy file instead")
	searchK := searchCmd.Int("k", 10, "Number of results")

	// Stats flags
	statsIndex := statsCmd.String("index", "index.feather", "Index file")

	// Snapshot flags
	snapIndex := snapshotCmd.String("index", "index.feather", "Index file")
	snapOut := snapshotCmd.String("out", "index.fsnap", "Snapshot file")
	snapCompression := snapshotCmd.String("compression", "zstd", "Compression (none, lz4, zstd)")

	// Restore flags
	restoreSnap := restoreCmd.String("snapshot", "index.fsnap", "Snapshot file")
	restoreIndex := restoreCmd.String("index", "index.feather", "Index file to write")

	// Push flags
	pushIndex := pushCmd.String("index", "index.feather", "Index file")
	pushRemote := pushCmd.String("remote", "", "Blob store (dir path, s3://bucket/prefix, minio://endpoint/bucket/prefix)")
	pushName := pushCmd.String("name", "index", "Remote name")
	pushRate := pushCmd.Float64("rate", 0, "Throughput limit in bytes/sec (0 = unlimited)")

	// Pull flags
	pullRemote := pullCmd.String("remote", "", "Blob store (dir path, s3://bucket/prefix, minio://endpoint/bucket/prefix)")
	pullName := pullCmd.String("name", "index", "Remote name")
	pullIndex := pullCmd.String("index", "index.feather", "Index file to write")
	pullRate := pullCmd.Float64("rate", 0, "Throughput limit in bytes/sec (0 = unlimited)")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "new":
		newCmd.Parse(os.Args[2:])
		runNew(ctx, *newIndex, *newDim)
	case "add":
		addCmd.Parse(os.Args[2:])
		runAdd(ctx, *addIndex, *addID, *addVector, *addNpy)
	case "search":
		searchCmd.Parse(os.Args[2:])
		runSearch(ctx, *searchIndex, *searchQuery, *searchNpy, *searchK)
	case "stats":
		statsCmd.Parse(os.Args[2:])
		runStats(ctx, *statsIndex)
	case "snapshot":
		snapshotCmd.Parse(os.Args[2:])
		runSnapshot(ctx, *snapIndex, *snapOut, *snapCompression)
	case "restore":
		restoreCmd.Parse(os.Args[2:])
		runRestore(ctx, *restoreSnap, *restoreIndex)
	case "push":
		pushCmd.Parse(os.Args[2:])
		runPush(ctx, *pushIndex, *pushRemote, *pushName, *pushRate)
	case "pull":
		pullCmd.Parse(os.Args[2:])
		runPull(ctx, *pullRemote, *pullName, *pullIndex, *pullRate)
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("feather - persistent vector index tool")
	fmt.Println("\nUsage:")
	fmt.Println("  feather new       - Create an empty index")
	fmt.Println("  feather add       - Add a vector to an index")
	fmt.Println("  feather search    - Find nearest neighbors")
	fmt.Println("  feather stats     - Print index statistics")
	fmt.Println("  feather snapshot  - Write a compressed snapshot")
	fmt.Println("  feather restore   - Rebuild an index from a snapshot")
	fmt.Println("  feather push      - Mirror an index to a blob store")
	fmt.Println("  feather pull      - Fetch a mirrored index")
	fmt.Println("\nExamples:")
	fmt.Println("  feather new -index vectors.feather -dim 128")
	fmt.Println("  feather add -index vectors.feather -id 42 -vector \"0.1,0.2,0.3\"")
	fmt.Println("  feather search -index vectors.feather -query \"0.1,0.2,0.3\" -k 5")
	fmt.Println("  feather push -index vectors.feather -remote s3://bucket/indexes -name prod")
}

func runNew(ctx context.Context, path string, dim int) {
	if dim <= 0 {
		log.Fatal("new: -dim must be positive")
	}
	if _, err := os.Stat(path); err == nil {
		log.Fatalf("new: %s already exists", path)
	}

	db, err := feather.Open(path, feather.WithDimension(dim))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.Save(ctx); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Created %s (dimension %d)\n", path, dim)
}

func runAdd(ctx context.Context, path string, id uint64, vectorArg, npyArg string) {
	v := loadVector(vectorArg, npyArg)

	db, err := feather.Open(path)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.Add(ctx, id, v); err != nil {
		log.Fatal(err)
	}
	if err := db.Save(ctx); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Added id %d (%d entries total)\n", id, db.Count())
}

func runSearch(ctx context.Context, path, queryArg, npyArg string, k int) {
	q := loadVector(queryArg, npyArg)

	db, err := feather.Open(path)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	results, err := db.Search(ctx, q, k)
	if err != nil {
		log.Fatal(err)
	}

	for _, r := range results {
		fmt.Printf("ID: %d  dist: %.4f\n", r.ID, r.Distance)
	}
}

func runStats(ctx context.Context, path string) {
	db, err := feather.Open(path)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	stats, err := db.Stats()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Path:       %s\n", stats.Path)
	fmt.Printf("Dimension:  %d\n", stats.Dimension)
	fmt.Printf("Entries:    %d\n", stats.EntryCount)
	fmt.Printf("Unique IDs: %d\n", stats.UniqueIDs)
}

func runSnapshot(ctx context.Context, path, out, compressionArg string) {
	compression, err := snapshot.ParseCompression(compressionArg)
	if err != nil {
		log.Fatal(err)
	}

	db, err := feather.Open(path)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	err = db.Snapshot(ctx, out, func(o *snapshot.Options) {
		o.Compression = compression
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Snapshot written to %s (%s)\n", out, compression)
}

func runRestore(ctx context.Context, snapshotPath, indexPath string) {
	db, err := feather.Restore(ctx, snapshotPath, indexPath)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	fmt.Printf("Restored %s (%d entries, dimension %d)\n", indexPath, db.Count(), db.Dimension())
}

func runPush(ctx context.Context, path, remote, name string, bytesPerSec float64) {
	bs := openBlobStore(ctx, remote, bytesPerSec)

	db, err := feather.Open(path)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.Push(ctx, bs, name); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Pushed %s as %q (%d entries)\n", path, name, db.Count())
}

func runPull(ctx context.Context, remote, name, path string, bytesPerSec float64) {
	bs := openBlobStore(ctx, remote, bytesPerSec)

	db, err := feather.Pull(ctx, bs, name, path)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	fmt.Printf("Pulled %q to %s (%d entries)\n", name, path, db.Count())
}

func loadVector(vectorArg, npyArg string) []float32 {
	switch {
	case npyArg != "":
		v, err := npy.ReadVectorFile(npyArg)
		if err != nil {
			log.Fatal(err)
		}
		return v
	case vectorArg != "":
		return parseVector(vectorArg)
	default:
		log.Fatal("either -vector or -npy is required")
		return nil
	}
}

func parseVector(s string) []float32 {
	parts := strings.Split(s, ",")
	v := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			log.Fatalf("bad vector component %q: %v", p, err)
		}
		v[i] = float32(f)
	}
	return v
}

// openBlobStore interprets a -remote flag. Plain paths are local
// directories; s3://bucket/prefix uses the ambient AWS config;
// minio://endpoint/bucket/prefix reads MINIO_ACCESS_KEY and
// MINIO_SECRET_KEY from the environment (MINIO_SECURE=1 for TLS).
func openBlobStore(ctx context.Context, remote string, bytesPerSec float64) blobstore.BlobStore {
	if remote == "" {
		log.Fatal("-remote is required")
	}

	var bs blobstore.BlobStore

	switch {
	case strings.HasPrefix(remote, "s3://"):
		u, err := url.Parse(remote)
		if err != nil {
			log.Fatalf("bad remote %q: %v", remote, err)
		}
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			log.Fatal(err)
		}
		client := awss3.NewFromConfig(cfg)
		bs = s3blob.NewStore(client, u.Host, strings.TrimPrefix(u.Path, "/"))

	case strings.HasPrefix(remote, "minio://"):
		u, err := url.Parse(remote)
		if err != nil {
			log.Fatalf("bad remote %q: %v", remote, err)
		}
		bucket, prefix, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
		if bucket == "" {
			log.Fatalf("bad remote %q: missing bucket", remote)
		}
		client, err := minio.New(u.Host, &minio.Options{
			Creds:  credentials.NewStaticV4(os.Getenv("MINIO_ACCESS_KEY"), os.Getenv("MINIO_SECRET_KEY"), ""),
			Secure: os.Getenv("MINIO_SECURE") == "1",
		})
		if err != nil {
			log.Fatal(err)
		}
		bs = minioblob.NewStore(client, bucket, prefix)

	default:
		bs = blobstore.NewLocalStore(remote)
	}

	if bytesPerSec > 0 {
		burst := int(bytesPerSec)
		if burst < 64*1024 {
			burst = 64 * 1024
		}
		bs = blobstore.NewThrottledStore(bs, bytesPerSec, burst)
	}

	return bs
}
