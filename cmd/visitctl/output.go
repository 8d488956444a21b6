package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/tendant/visit-content/pkg/visitcontent"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printEvents(w io.Writer, events []*visitcontent.Event) error {
	if jsonOutput {
		if events == nil {
			events = []*visitcontent.Event{}
		}
		return printJSON(w, events)
	}
	if len(events) == 0 {
		fmt.Fprintln(w, "No events.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTIME\tTITLE\tLOCATION\tSTATUS\tOWNER")
	for _, e := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.Date, e.Time, truncate(e.Title, 40), truncate(e.Location, 30), e.Status, e.OwnerID)
	}
	return tw.Flush()
}

func printPlaces(w io.Writer, places []*visitcontent.Place) error {
	if jsonOutput {
		if places == nil {
			places = []*visitcontent.Place{}
		}
		return printJSON(w, places)
	}
	if len(places) == 0 {
		fmt.Fprintln(w, "No places.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tFEATURE")
	for _, p := range places {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, truncate(p.Name, 40), p.Category, truncate(p.Feature, 40))
	}
	return tw.Flush()
}

func printLandmarks(w io.Writer, landmarks []*visitcontent.Landmark) error {
	if jsonOutput {
		if landmarks == nil {
			landmarks = []*visitcontent.Landmark{}
		}
		return printJSON(w, landmarks)
	}
	if len(landmarks) == 0 {
		fmt.Fprintln(w, "No landmarks.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tLAT\tLNG\tCATEGORY")
	for _, l := range landmarks {
		fmt.Fprintf(tw, "%s\t%s\t%.5f\t%.5f\t%s\n", l.ID, truncate(l.Name, 40), l.Lat, l.Lng, l.Category)
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
