package store

import (
	"context"
	"errors"
	"testing"
)

func TestBookCacheResolvesDuplicateISBN(t *testing.T) {
	t.Parallel()

	testStore := openTestStore(t)
	created, createErr := testStore.CreateBook(context.Background(), Book{
		Title:     "The Go Programming Language",
		Author:    "Donovan and Kernighan",
		Publisher: "Addison-Wesley",
		ISBN:      "9780134190440",
	})
	if createErr != nil {
		t.Fatalf("expected create to succeed, got %v", createErr)
	}

	duplicate, duplicateErr := testStore.CreateBook(context.Background(), Book{
		Title: "The Go Programming Language",
		ISBN:  "9780134190440",
	})
	if duplicateErr != nil {
		t.Fatalf("expected a duplicate insert to resolve, got %v", duplicateErr)
	}
	if duplicate.ID != created.ID {
		t.Fatalf("expected the duplicate to resolve to the existing row, got %d and %d", created.ID, duplicate.ID)
	}

	found, findErr := testStore.FindBookByISBN(context.Background(), "9780134190440")
	if findErr != nil || found.ID != created.ID {
		t.Fatalf("expected lookup to resolve the cached row, got %+v / %v", found, findErr)
	}
	if _, err := testStore.FindBookByISBN(context.Background(), "0000000000000"); !errors.Is(err, ErrBookNotFound) {
		t.Fatalf("expected ErrBookNotFound, got %v", err)
	}
}

func TestCartAddListAndIncrement(t *testing.T) {
	t.Parallel()

	testStore := openTestStore(t)
	book, bookErr := testStore.CreateBook(context.Background(), Book{Title: "Learning Go", ISBN: "9781492077213"})
	if bookErr != nil {
		t.Fatalf("expected book create to succeed, got %v", bookErr)
	}

	const cartOwner = uint64(501)

	first, addErr := testStore.AddCartItem(context.Background(), cartOwner, book.ID, 1)
	if addErr != nil {
		t.Fatalf("expected add to succeed, got %v", addErr)
	}
	if first.Quantity != 1 {
		t.Fatalf("expected quantity 1, got %d", first.Quantity)
	}

	incremented, incrementErr := testStore.AddCartItem(context.Background(), cartOwner, book.ID, 2)
	if incrementErr != nil {
		t.Fatalf("expected the repeat add to succeed, got %v", incrementErr)
	}
	if incremented.ID != first.ID || incremented.Quantity != 3 {
		t.Fatalf("expected the existing line to increment to 3, got %+v", incremented)
	}

	items, listErr := testStore.ListCartItems(context.Background(), cartOwner)
	if listErr != nil {
		t.Fatalf("expected listing to succeed, got %v", listErr)
	}
	if len(items) != 1 {
		t.Fatalf("expected one cart line, got %d", len(items))
	}
	if items[0].Book == nil || items[0].Book.ISBN != "9781492077213" {
		t.Fatalf("expected the book row to be preloaded, got %+v", items[0].Book)
	}
}

func TestCartUpdateEnforcesOwnership(t *testing.T) {
	t.Parallel()

	testStore := openTestStore(t)
	book, bookErr := testStore.CreateBook(context.Background(), Book{Title: "Go in Action", ISBN: "9781617291784"})
	if bookErr != nil {
		t.Fatalf("expected book create to succeed, got %v", bookErr)
	}

	const cartOwner = uint64(502)
	const otherUser = uint64(503)

	item, addErr := testStore.AddCartItem(context.Background(), cartOwner, book.ID, 1)
	if addErr != nil {
		t.Fatalf("expected add to succeed, got %v", addErr)
	}

	if _, err := testStore.UpdateCartItemQuantity(context.Background(), otherUser, item.ID, 5); !errors.Is(err, ErrCartItemNotFound) {
		t.Fatalf("expected another user's update to miss, got %v", err)
	}
	updated, updateErr := testStore.UpdateCartItemQuantity(context.Background(), cartOwner, item.ID, 5)
	if updateErr != nil || updated.Quantity != 5 {
		t.Fatalf("expected the owner's update to land, got %+v / %v", updated, updateErr)
	}

	if err := testStore.DeleteCartItem(context.Background(), otherUser, item.ID); !errors.Is(err, ErrCartItemNotFound) {
		t.Fatalf("expected another user's delete to miss, got %v", err)
	}
	if err := testStore.DeleteCartItem(context.Background(), cartOwner, item.ID); err != nil {
		t.Fatalf("expected the owner's delete to succeed, got %v", err)
	}
}

func TestClearCartRemovesAllLines(t *testing.T) {
	t.Parallel()

	testStore := openTestStore(t)
	firstBook, firstErr := testStore.CreateBook(context.Background(), Book{Title: "Go Web Programming", ISBN: "9781617292569"})
	if firstErr != nil {
		t.Fatalf("expected book create to succeed, got %v", firstErr)
	}
	secondBook, secondErr := testStore.CreateBook(context.Background(), Book{Title: "Concurrency in Go", ISBN: "9781491941195"})
	if secondErr != nil {
		t.Fatalf("expected book create to succeed, got %v", secondErr)
	}

	const cartOwner = uint64(504)
	if _, err := testStore.AddCartItem(context.Background(), cartOwner, firstBook.ID, 1); err != nil {
		t.Fatalf("expected add to succeed, got %v", err)
	}
	if _, err := testStore.AddCartItem(context.Background(), cartOwner, secondBook.ID, 2); err != nil {
		t.Fatalf("expected add to succeed, got %v", err)
	}

	if err := testStore.ClearCart(context.Background(), cartOwner); err != nil {
		t.Fatalf("expected clear to succeed, got %v", err)
	}
	items, listErr := testStore.ListCartItems(context.Background(), cartOwner)
	if listErr != nil {
		t.Fatalf("expected listing to succeed, got %v", listErr)
	}
	if len(items) != 0 {
		t.Fatalf("expected an empty cart, got %d lines", len(items))
	}
}
