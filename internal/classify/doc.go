// Package classify defines the contract with the external style classifier
// and the result types that flow from it into the cache and reports.
//
// A Result is a tagged record: exactly one of the image, video, or error
// variants is populated, and Flat converts it to the fixed reporting row at
// the boundary. HTTPClient talks to a classification service that returns
// label probabilities per image or per sampled video frame; the positive
// decision, strict-mode checks, frame planning, and video aggregation happen
// here so every service deployment applies the same rules.
package classify
