// Package metadata extracts embedded metadata from files on disk.
//
// Each supported format has an Extractor:
//   - exif: JPEG, TIFF and HEIC images (EXIF via go-exif)
//   - pdf: the Info dictionary and XMP packet of PDF documents
//   - ooxml: docProps/core.xml and docProps/app.xml of Office documents
//   - html: author and generator meta tags and the page title
//   - png: tEXt, zTXt and iTXt chunks plus an embedded eXIf chunk
//
// A Registry picks the first extractor that supports a path. Files of
// other formats yield empty metadata, not an error, because the analysis
// still scores them on path and type.
//
// Extraction only reads files. Removing metadata is the cleaner's job.
package metadata
