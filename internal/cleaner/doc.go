// Package cleaner writes copies of documents with their identifying
// metadata removed.
//
// Each supported format is rewritten in a way that keeps the document
// valid for its usual readers:
//
//   - PDF: Info dictionary and XMP values are blanked in place, so object
//     offsets and the cross-reference table stay correct. A PDF keeping
//     metadata in compressed streams fails with ErrCompressedMetadata.
//   - JPEG: APP1 (EXIF, XMP), APP12, APP13 (IPTC) and COM segments are dropped.
//   - PNG: tEXt, zTXt, iTXt, eXIf and tIME chunks are dropped.
//   - OOXML: identifying docProps elements, custom property strings and
//     the authors of comments and tracked changes are emptied.
//   - HTML: identifying <meta> elements are removed.
//
// Any other file is copied byte for byte.
package cleaner
