// Package models defines the core domain entities: catalog events, windows, and b-value estimates.
package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// RawEvent is a catalog row in geographic coordinates, before projection.
// Depth is in kilometres, positive down.
type RawEvent struct {
	Time      time.Time `json:"time"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Depth     float64   `json:"depth"`
	Magnitude float64   `json:"magnitude"`
}

// Validate checks raw event field constraints.
func (e *RawEvent) Validate() error {
	if e.Time.IsZero() {
		return errors.New("event time must be set")
	}
	if e.Latitude < -90 || e.Latitude > 90 {
		return fmt.Errorf("latitude %.4f must be between -90 and 90", e.Latitude)
	}
	if e.Longitude < -180 || e.Longitude > 180 {
		return fmt.Errorf("longitude %.4f must be between -180 and 180", e.Longitude)
	}
	if math.IsNaN(e.Depth) || math.IsInf(e.Depth, 0) {
		return errors.New("depth must be finite")
	}
	if math.IsNaN(e.Magnitude) || math.IsInf(e.Magnitude, 0) {
		return errors.New("magnitude must be finite")
	}
	return nil
}

// Event is a projected catalog event. X, Y and Z are in kilometres.
// Events are values and are never modified once a catalog has been built.
type Event struct {
	Time      time.Time `json:"time"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Z         float64   `json:"z"`
	Magnitude float64   `json:"magnitude"`
}

// Magnitudes returns the magnitude sample of events.
func Magnitudes(events []Event) []float64 {
	mags := make([]float64, len(events))
	for i, e := range events {
		mags[i] = e.Magnitude
	}
	return mags
}

// Extent is the axis-aligned bounding box of a set of events.
type Extent struct {
	XMin, XMax float64
	YMin, YMax float64
	ZMin, ZMax float64
}

// ExtentOf returns the bounding box of events. ok is false for an empty slice.
func ExtentOf(events []Event) (ext Extent, ok bool) {
	if len(events) == 0 {
		return Extent{}, false
	}
	ext = Extent{
		XMin: events[0].X, XMax: events[0].X,
		YMin: events[0].Y, YMax: events[0].Y,
		ZMin: events[0].Z, ZMax: events[0].Z,
	}
	for _, e := range events[1:] {
		ext.XMin = math.Min(ext.XMin, e.X)
		ext.XMax = math.Max(ext.XMax, e.X)
		ext.YMin = math.Min(ext.YMin, e.Y)
		ext.YMax = math.Max(ext.YMax, e.Y)
		ext.ZMin = math.Min(ext.ZMin, e.Z)
		ext.ZMax = math.Max(ext.ZMax, e.Z)
	}
	return ext, true
}
