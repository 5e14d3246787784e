// Package slug derives tenant slugs from display names.
//
// Slugs are lowercase DNS labels so they can double as the leftmost host
// segment used during tenant resolution:
//
//	slug.Make("Café Crème & Co")                        // "cafe-creme-co"
//	slug.Make("Acme", slug.WithSuffix(4))               // "acme-x7g3"
//	slug.Make("Ben & Jerry", slug.WithReplace(map[string]string{"&": "and"}))
//	                                                     // "ben-and-jerry"
//
// Generation never fails. Callers still validate the result, since an input
// with no letters or digits produces an empty slug.
package slug
