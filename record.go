// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package eeghdf

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/OpenPSG/eeghdf/container"
	"go.uber.org/zap"
)

// Record reads the single waveform record of an eeghdf file.
type Record struct {
	FileName string
	Version  Version
	Metadata

	rec         container.Group
	signals     container.Dataset
	raw         *RawSignals
	annotations Annotations
	closer      io.Closer
	log         *zap.Logger

	dimsOnce sync.Once
	dims     []string
	dimsErr  error

	physOnce sync.Once
	phys     *PhysicalSignals
	physErr  error
}

// Open opens an eeghdf file for reading.
func Open(path string, opts ...Option) (*Record, error) {
	f, err := container.OpenHDF5(path)
	if err != nil {
		return nil, err
	}

	r, err := New(f, opts...)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("error opening %s: %w", path, err)
	}
	r.FileName = path
	r.closer = f

	return r, nil
}

// New reads a recording from an already opened container. Every required
// attribute and dataset is read here; a missing one fails the call.
func New(root container.Group, opts ...Option) (*Record, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	rec, err := root.Group(RecordGroup)
	if err != nil {
		return nil, fmt.Errorf("error opening waveform record: %w", err)
	}

	r := &Record{
		Version: Version1,
		rec:     rec,
		log:     o.logger,
	}

	if err := r.readMetadata(root); err != nil {
		return nil, err
	}

	r.signals, err = rec.Dataset(DatasetSignals)
	if err != nil {
		return nil, fmt.Errorf("error opening signals: %w", err)
	}
	r.raw, err = NewRawSignals(r.signals)
	if err != nil {
		return nil, err
	}
	if shape := r.raw.Shape(); shape[0] != r.NumberChannels || shape[1] != r.NumberSamplesPerChannel {
		return nil, fmt.Errorf("%w: signals have shape %v but attributes declare %d channels of %d samples",
			ErrMalformedRecord, shape, r.NumberChannels, r.NumberSamplesPerChannel)
	}

	if err := r.readAnnotations(); err != nil {
		return nil, err
	}

	r.log.Debug("Opened record",
		zap.Int("channels", r.NumberChannels),
		zap.Int("samplesPerChannel", r.NumberSamplesPerChannel),
		zap.Float64("sampleFrequency", r.SampleFrequency),
		zap.Int("annotations", len(r.annotations)))

	return r, nil
}

// Close releases the file opened by Open. It is a no-op for records created
// with New.
func (r *Record) Close() error {
	if r.closer == nil {
		return nil
	}
	closer := r.closer
	r.closer = nil
	return closer.Close()
}

func (r *Record) readMetadata(root container.Group) error {
	ageDays, err := attrFloat(r.rec, AttrPatientAgeDays)
	if err != nil {
		return err
	}
	r.AgeYears = ageDays / DaysPerYear

	if r.StartISODateTime, err = attrString(r.rec, AttrStartISODateTime); err != nil {
		return err
	}
	if r.EndISODateTime, err = attrString(r.rec, AttrEndISODateTime); err != nil {
		return err
	}
	if r.NumberChannels, err = attrInt(r.rec, AttrNumberChannels); err != nil {
		return err
	}
	if r.NumberSamplesPerChannel, err = attrInt(r.rec, AttrNumberSamplesPerChannel); err != nil {
		return err
	}
	if r.SampleFrequency, err = attrFloat(r.rec, AttrSampleFrequency); err != nil {
		return err
	}

	labels, err := readBytes(r.rec, DatasetSignalLabels)
	if err != nil {
		return err
	}
	if r.ElectrodeLabels, err = decodeASCII(DatasetSignalLabels, labels); err != nil {
		return err
	}

	patient, err := root.Group(PatientGroup)
	if err != nil {
		return fmt.Errorf("error opening patient attributes: %w", err)
	}
	r.Patient = make(map[string]any)
	for _, name := range patient.AttrNames() {
		if r.Patient[name], err = patient.Attr(name); err != nil {
			return fmt.Errorf("error reading patient attribute %s: %w", name, err)
		}
	}

	return validateMetadata(&r.Metadata)
}

func (r *Record) readAnnotations() error {
	g, err := r.rec.Group(AnnotationsGroup)
	if err != nil {
		return fmt.Errorf("error opening annotations: %w", err)
	}

	texts, err := readBytes(g, DatasetAnnotationText)
	if err != nil {
		return err
	}

	ds, err := g.Dataset(DatasetAnnotationTime)
	if err != nil {
		return fmt.Errorf("error opening %s: %w", DatasetAnnotationTime, err)
	}
	starts, err := ds.ReadInt64()
	if err != nil {
		return fmt.Errorf("error reading %s: %w", DatasetAnnotationTime, err)
	}

	r.annotations, err = DecodeAnnotations(texts, starts)
	return err
}

// Annotations returns every annotation in storage order.
func (r *Record) Annotations() Annotations {
	return r.annotations
}

// AnnotationsContaining returns the annotations whose text matches pattern,
// ignoring case unless caseSensitive is set.
func (r *Record) AnnotationsContaining(pattern string, caseSensitive bool) (Annotations, error) {
	return r.annotations.Containing(pattern, caseSensitive)
}

// Labels returns the electrode label of every channel.
func (r *Record) Labels() []string {
	return r.ElectrodeLabels
}

// ChannelIndex returns the channel carrying the given electrode label.
func (r *Record) ChannelIndex(label string) (int, bool) {
	for i, l := range r.ElectrodeLabels {
		if l == label {
			return i, true
		}
	}
	return 0, false
}

// StartTime parses the stored start timestamp.
func (r *Record) StartTime() (time.Time, error) {
	return parseISO(AttrStartISODateTime, r.StartISODateTime)
}

// EndTime parses the stored end timestamp.
func (r *Record) EndTime() (time.Time, error) {
	return parseISO(AttrEndISODateTime, r.EndISODateTime)
}

// PhysicalDimensions returns the physical unit of every channel (e.g. uV).
// It is read on first use and cached.
func (r *Record) PhysicalDimensions() ([]string, error) {
	r.dimsOnce.Do(func() {
		raw, err := readBytes(r.rec, DatasetPhysicalDimensions)
		if err != nil {
			r.dimsErr = err
			return
		}
		r.dims, r.dimsErr = decodeUTF8(DatasetPhysicalDimensions, raw)
		r.log.Debug("Loaded physical dimensions", zap.Strings("dimensions", r.dims))
	})
	return r.dims, r.dimsErr
}

// PhysicalSignals returns the signals in physical units. The calibration and
// view are computed on first use and shared by later calls.
func (r *Record) PhysicalSignals() (*PhysicalSignals, error) {
	r.physOnce.Do(func() {
		r.phys, r.physErr = r.buildPhysicalSignals()
	})
	return r.phys, r.physErr
}

// Calibration returns the cached sample-to-units transform.
func (r *Record) Calibration() (*Calibration, error) {
	p, err := r.PhysicalSignals()
	if err != nil {
		return nil, err
	}
	return p.Calibration(), nil
}

func (r *Record) buildPhysicalSignals() (*PhysicalSignals, error) {
	pmin, err := r.SignalPhysicalMins()
	if err != nil {
		return nil, err
	}
	pmax, err := r.SignalPhysicalMaxs()
	if err != nil {
		return nil, err
	}
	dmin, err := r.SignalDigitalMins()
	if err != nil {
		return nil, err
	}
	dmax, err := r.SignalDigitalMaxs()
	if err != nil {
		return nil, err
	}

	cal, err := NewCalibration(pmin, pmax, dmin, dmax)
	if err != nil {
		return nil, fmt.Errorf("error computing calibration: %w", err)
	}

	p, err := NewPhysicalSignals(r.signals, cal)
	if err != nil {
		return nil, err
	}

	if p.ZeroOffset() && !(cal.MaxAbsOffset() < ZeroOffsetThreshold) {
		return nil, fmt.Errorf("zero-offset view chosen with offset %v", cal.MaxAbsOffset())
	}

	r.log.Debug("Computed calibration",
		zap.Bool("zeroOffset", p.ZeroOffset()),
		zap.Float64("maxAbsOffset", cal.MaxAbsOffset()))

	return p, nil
}

// SignalPhysicalMins reads the physical minimum of every channel.
func (r *Record) SignalPhysicalMins() ([]float64, error) {
	return readFloats(r.rec, DatasetPhysicalMins)
}

// SignalPhysicalMaxs reads the physical maximum of every channel.
func (r *Record) SignalPhysicalMaxs() ([]float64, error) {
	return readFloats(r.rec, DatasetPhysicalMaxs)
}

// SignalDigitalMins reads the digital minimum of every channel.
func (r *Record) SignalDigitalMins() ([]float64, error) {
	return readFloats(r.rec, DatasetDigitalMins)
}

// SignalDigitalMaxs reads the digital maximum of every channel.
func (r *Record) SignalDigitalMaxs() ([]float64, error) {
	return readFloats(r.rec, DatasetDigitalMaxs)
}

// Shape returns (channels, samples) of the raw signal buffer.
func (r *Record) Shape() []int {
	return r.raw.Shape()
}

// RawSignals returns the raw sample buffer.
func (r *Record) RawSignals() *RawSignals {
	return r.raw
}

func attrInt(g container.Group, name string) (int, error) {
	v, err := g.Attr(name)
	if err != nil {
		return 0, fmt.Errorf("error reading attribute %s: %w", name, err)
	}
	i, err := container.Int64(v)
	if err != nil {
		return 0, fmt.Errorf("error reading attribute %s: %w", name, err)
	}
	return int(i), nil
}

func attrFloat(g container.Group, name string) (float64, error) {
	v, err := g.Attr(name)
	if err != nil {
		return 0, fmt.Errorf("error reading attribute %s: %w", name, err)
	}
	f, err := container.Float64(v)
	if err != nil {
		return 0, fmt.Errorf("error reading attribute %s: %w", name, err)
	}
	return f, nil
}

func attrString(g container.Group, name string) (string, error) {
	v, err := g.Attr(name)
	if err != nil {
		return "", fmt.Errorf("error reading attribute %s: %w", name, err)
	}
	b, err := container.Bytes(v)
	if err != nil {
		return "", fmt.Errorf("error reading attribute %s: %w", name, err)
	}
	s, err := decodeUTF8(name, [][]byte{b})
	if err != nil {
		return "", err
	}
	return s[0], nil
}

func readBytes(g container.Group, name string) ([][]byte, error) {
	ds, err := g.Dataset(name)
	if err != nil {
		return nil, fmt.Errorf("error opening %s: %w", name, err)
	}
	b, err := ds.ReadBytes()
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", name, err)
	}
	return b, nil
}

func readFloats(g container.Group, name string) ([]float64, error) {
	ds, err := g.Dataset(name)
	if err != nil {
		return nil, fmt.Errorf("error opening %s: %w", name, err)
	}
	f, err := ds.ReadFloat64()
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", name, err)
	}
	return f, nil
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseISO(name, s string) (time.Time, error) {
	var err error
	for _, layout := range isoLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("error parsing %s: %w", name, err)
}
