// Command chbuild ingests a road network (text format or OSM PBF), filters
// it to its largest connected component, runs Contraction Hierarchies
// preprocessing, and writes the result as a text graph or a spatial block
// file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"chcore/pkg/ch"
	"chcore/pkg/cherr"
	"chcore/pkg/graph"
	"chcore/pkg/offtp"
	"chcore/pkg/osmingest"
	"chcore/pkg/textio"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			if cerr, ok := r.(*cherr.Error); ok {
				log.Fatalf("fatal: %v", cerr)
			}
			panic(r)
		}
	}()

	var (
		inPath     = flag.String("in", "", "input graph file")
		inFormat   = flag.String("in-format", "STD", "input format: STD, SIMPLE, FMI, or OSM")
		outPath    = flag.String("out", "", "output file")
		outFormat  = flag.String("out-format", "offtp", "output format: STD, SIMPLE, FMI_CH, or offtp")
		bboxMinLat = flag.Float64("bbox-min-lat", 0, "OSM ingest bounding box: min latitude")
		bboxMaxLat = flag.Float64("bbox-max-lat", 0, "OSM ingest bounding box: max latitude")
		bboxMinLon = flag.Float64("bbox-min-lon", 0, "OSM ingest bounding box: min longitude")
		bboxMaxLon = flag.Float64("bbox-max-lon", 0, "OSM ingest bounding box: max longitude")
		skipFilter = flag.Bool("skip-component-filter", false, "skip largest-connected-component filtering")
	)
	flag.Parse()

	if *inPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: chbuild -in <file> -in-format <fmt> -out <file> -out-format <fmt>")
		os.Exit(2)
	}

	base, err := ingest(*inPath, *inFormat, osmingest.BBox{
		MinLat: *bboxMinLat, MaxLat: *bboxMaxLat, MinLon: *bboxMinLon, MaxLon: *bboxMaxLon,
	})
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	log.Printf("ingested %d nodes, %d edges", base.NumNodes(), base.NumActiveEdges())

	if !*skipFilter {
		largest := graph.LargestComponent(base)
		base = graph.FilterToComponent(base, largest)
		log.Printf("largest component: %d nodes", base.NumNodes())
	}

	scg := ch.Contract(base)
	scg.RebuildCompleteGraph()
	data := ch.Export(scg.Graph)
	log.Printf("contraction produced %d total edges (originals + shortcuts)", len(data.Edges))

	if err := write(*outPath, *outFormat, data); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func ingest(path, format string, bbox osmingest.BBox) (*graph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, cherr.Wrap(cherr.IngestMalformed, err, "open input file")
	}
	defer f.Close()

	if format == "OSM" {
		nodes, edges, err := osmingest.Parse(context.Background(), f, osmingest.Options{BBox: bbox})
		if err != nil {
			return nil, err
		}
		return graph.Init(nodes, edges), nil
	}

	tf, err := textio.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	nodes, edges, err := textio.Read(f, tf)
	if err != nil {
		return nil, err
	}
	return graph.Init(nodes, edges), nil
}

func write(path, format string, data ch.ExportData) error {
	f, err := os.Create(path)
	if err != nil {
		return cherr.Wrap(cherr.IngestMalformed, err, "create output file")
	}
	defer f.Close()

	if format == "offtp" {
		return offtp.Write(f, data)
	}

	tf, err := textio.ParseFormat(format)
	if err != nil {
		return err
	}
	return textio.Write(f, tf, data.Nodes, data.Edges)
}
