// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package load fetches disk based data used to populate the runtime
// resources consumed by SoundWorld and AnimationStateMachine: sound
// clips, mesh-skeleton bind poses, and mesh-animation key streams
// (see SPEC_FULL.md §6 for the on-disk layouts). Data is loaded
// directly from disk for development builds and from a zip file
// attached to the binary for production builds.
//
// Package load is provided as part of the vu (virtual universe) 3D engine.
package load

import (
	"archive/zip"
	"io"
	"log"
	"os"
	"path"
	"strings"
)

// Loader provides methods for loading disk based data assets. Loader
// methods log development errors for unknown assets or unsupported
// data types. Loader methods return empty or nil data values when
// there are errors.
type Loader interface {
	// SetDir overrides the default directory location for the given
	// asset type. All directories are expected to be relative to the
	// application location.
	SetDir(assetType int, dir string) Loader
	Dispose() // Properly terminate asset loading

	Wav(name string) (wh *WavHdr, data []byte, err error)     // .wav
	Snd(name string) (res *SoundResource, err error)          // .snd
	Ske(name string) (res *SkeletonResource, err error)       // .ske
	Anm(name string) (res *AnimationResource, err error)      // .anm

	// GetResource allows applications to include and find custom resources.
	GetResource(directory, name string) (file io.ReadCloser, err error)
}

// Asset type identifiers for SetDir.
const (
	snd = iota // Audio.
	mod        // Mesh skeletons and animations.
)

// NewLoader provides the default loader implmentation.
func NewLoader() Loader { return newLoader() }

// Loader interface
// ===========================================================================
// loader is the default Loader implementation.

// loader provides functions to assist getting asset data from disk
// into the intermediate resource formats SPEC_FULL.md §6 describes.
// Asset files are expected to be created by external tools.
type loader struct {
	reader *zip.ReadCloser // packaged resources, if any.
	dir    map[int]string  // data directory locations.
}

// newLoader creates the appropriate asset loader. Assets are in a zip
// file that is either included within the production binary or in an
// asset directory relative to the executable. Development builds have
// a nil loader.reader and will look locally on disk.
func newLoader() *loader {
	var resources *zip.ReadCloser
	programName := os.Args[0]
	resourceZip := path.Join(path.Dir(programName), "../Resources/resources.zip")
	if reader, err := zip.OpenReader(resourceZip); err == nil {
		resources = reader // the creator must call loader.dispose().
	} else if reader, err := zip.OpenReader(programName); err == nil {
		resources = reader
	}
	l := &loader{reader: resources}
	l.dir = map[int]string{snd: "audio", mod: "models"}
	return l
}

// Comply with the Loader interface.
func (l *loader) Wav(name string) (wh *WavHdr, data []byte, err error) { return l.wav(name) }
func (l *loader) Snd(name string) (res *SoundResource, err error)      { return l.snd(name) }
func (l *loader) Ske(name string) (res *SkeletonResource, err error)   { return l.ske(name) }
func (l *loader) Anm(name string) (res *AnimationResource, err error)  { return l.anm(name) }
func (l *loader) SetDir(dataType int, dir string) Loader               { return l.setDir(dataType, dir) }
func (l *loader) Dispose()                                              { l.dispose() }

// Expose the resource location ability in the Loader interface.
func (l *loader) GetResource(directory, name string) (file io.ReadCloser, err error) {
	return l.getResource(directory, name)
}

// dispose properly terminates the loader. Only needed when the
// loader has been reading resources from a zip file.
func (l *loader) dispose() {
	if l.reader != nil {
		l.reader.Close()
	}
}

// setDir overrides one of the default resource directory locations.
func (l *loader) setDir(dataType int, dir string) *loader {
	switch dataType {
	case snd, mod:
		l.dir[dataType] = dir
	default:
		log.Printf("loader.setDir: unknown resource type")
	}
	return l
}

// getResource locates the named resource. Used in production where
// the resources have been included with the application, or in
// development where the resources are on disk in a local directory.
//
// The caller is responsible for closing the returned file.
func (l *loader) getResource(directory, name string) (file io.ReadCloser, err error) {
	filePath := strings.TrimSpace(path.Join(directory, name))
	if l.reader != nil {
		for _, resource := range l.reader.File {
			if filePath == resource.Name {
				rc, zerr := resource.Open()
				if zerr != nil {
					log.Printf("Could not open resource %s: %s", resource.Name, zerr)
					return nil, zerr
				}
				return rc, nil
			}
		}
	}
	return os.Open(filePath)
}
