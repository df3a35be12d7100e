// Package vendors implements the ten offer sources behind one Adapter
// contract.
//
// Every adapter builds a query from the identifier, fetches through the shared
// fetch layer, takes the first search hit, and validates it with the matching
// engine before returning. Failures are plain Result values: an adapter never
// returns an error or panics across the package boundary.
//
// HTML vendors are described by selector cascades in selectors.yaml. The three
// keyed API vendors (naver, aladin, elevenst) decode structured payloads and
// are only registered when their credentials are configured.
package vendors
