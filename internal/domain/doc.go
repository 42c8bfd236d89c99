// Package domain models the canonical dataset used to train models that
// predict coal power-plant CO2 emissions from satellite imagery.
//
// # Data Sources
//
// Three tabular sources are joined into one canonical row table:
//
//   - Image metadata: one record per facility per capture date, pointing at
//     the Sentinel-2 Cloud-Optimized GeoTIFF (COG) for that scene, plus the
//     scene's cloud-cover fraction. A scene is referenced either by a single
//     visual (TCI) COG URL or by an ordered list of per-band COG URLs.
//   - Facility metadata: CAMPD (EPA Clean Air Markets Program Data) facility
//     records — identifier, name, and WGS-84 coordinates.
//   - Emissions records: CAMPD daily CO2 mass (short tons) per facility.
//
// # Canonical Columns
//
// Every row of the joined table carries the full column set listed in
// [RequiredColumns]. Consumers verify column presence once, up front; a
// missing column is a configuration error, never a per-row condition.
//
// # Train / Validation / Test Policy
//
// Splits are assigned in two independent steps:
//
//  1. [PartitionFacilities] randomly partitions the distinct facility set
//     into train and val by count, so a facility's imagery never appears on
//     both sides of the train/val boundary.
//  2. [ResolveSplit] overrides the facility assignment per row: any row whose
//     capture year is at or past the configured test year is test data,
//     regardless of the facility partition. A facility may therefore
//     contribute recent rows to test and older rows to train or val, but
//     never rows to both train and val.
//
// # Dark-Image Quality Gate
//
// Scenes captured at night, under heavy haze, or over nodata regions decode
// to mostly-black crops. A pixel is dark when every channel sits below
// [DarkPixelIntensity] on the raw 8-bit scale; an image whose dark-pixel
// fraction exceeds the consumer's threshold is dropped from the stream
// without error.
//
// # Geometry
//
// Each row carries the geometry (a point or the bounding box of a polygon)
// used to crop the facility's plume region out of the full COG scene. The
// crop itself is performed by an [ImageFetcher] implementation.
package domain
