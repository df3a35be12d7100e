// Package textutil normalizes titles and scores how alike two titles are.
//
// Normalization applies Unicode NFKC, lowercases, and drops every rune that is
// not a letter or digit, so "Abbey Road (Remastered)" and "abbeyroadremastered"
// compare equal and full-width Latin from Korean storefronts folds to ASCII.
// Similarity is the Sørensen–Dice coefficient over character bigrams of the
// normalized text.
package textutil
