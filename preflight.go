package gistool

import (
	"fmt"

	"github.com/airbusgeo/godal"
)

// Capabilities reports which GDAL drivers the linked toolchain provides.
type Capabilities struct {
	GTiff     bool
	VRT       bool
	HDF4      bool
	HDF5      bool
	Shapefile bool
}

// Preflight registers the drivers the workflow relies on and reports what is
// available. Call once at startup, before any other raster or vector work, so
// a misconfigured toolchain fails before any I/O instead of mid-run.
func Preflight() Capabilities {
	godal.RegisterInternalDrivers()
	return Capabilities{
		GTiff:     godal.RegisterRaster(godal.GTiff) == nil,
		VRT:       godal.RegisterRaster(godal.VRT) == nil,
		HDF4:      godal.RegisterRaster(godal.DriverName("HDF4")) == nil,
		HDF5:      godal.RegisterRaster(godal.DriverName("HDF5")) == nil,
		Shapefile: godal.RegisterVector(godal.Shapefile) == nil,
	}
}

// Granules reports whether any driver able to read raw granules is present.
func (c Capabilities) Granules() bool {
	return c.HDF4 || c.HDF5
}

// Check returns an error describing the missing capabilities required by the
// given configuration, or nil when the toolchain can serve it.
func (c Capabilities) Check(cfg RunConfig) error {
	if !c.GTiff || !c.VRT {
		return fmt.Errorf("toolchain lacks GTiff/VRT support")
	}
	if !c.Granules() {
		return fmt.Errorf("toolchain lacks HDF granule support")
	}
	if cfg.ShapefilePath != "" && !c.Shapefile {
		return fmt.Errorf("toolchain lacks shapefile support")
	}
	return nil
}

func (c Capabilities) String() string {
	return fmt.Sprintf("gtiff=%v vrt=%v hdf4=%v hdf5=%v shapefile=%v",
		c.GTiff, c.VRT, c.HDF4, c.HDF5, c.Shapefile)
}
