// Package classifier provides the image classifiers consumed by the security
// service and the decoding of uploaded camera frames.
//
// The classifiers are opaque: Random reports a cat with a fixed probability and
// Static always gives the same answer. Decode accepts jpeg, png, gif, bmp, tiff
// and webp frames.
package classifier
