package history

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreTests exercises the Store contract against any backend.
func runStoreTests(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("SessionLifecycle", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		session := &Session{Title: "poster draft"}
		require.NoError(t, store.CreateSession(ctx, session))
		require.NotEmpty(t, session.ID)

		got, err := store.GetSession(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, "poster draft", got.Title)

		sessions, err := store.ListSessions(ctx)
		require.NoError(t, err)
		assert.Len(t, sessions, 1)

		require.NoError(t, store.DeleteSession(ctx, session.ID))
		_, err = store.GetSession(ctx, session.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("DeleteUnknownSession", func(t *testing.T) {
		store := newStore(t)
		err := store.DeleteSession(context.Background(), "no-such-id")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("NodeTree", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		session := &Session{Title: "tree"}
		require.NoError(t, store.CreateSession(ctx, session))

		root := &Node{
			SessionID: session.ID,
			Kind:      KindGenerate,
			Prompt:    "a red fox",
			MIMEType:  "image/png",
			ImageData: "cm9vdA==",
		}
		require.NoError(t, store.AddNode(ctx, root))

		child := &Node{
			SessionID: session.ID,
			ParentID:  root.ID,
			Kind:      KindEdit,
			Prompt:    "make it blue",
			MIMEType:  "image/png",
			ImageData: "Y2hpbGQ=",
		}
		require.NoError(t, store.AddNode(ctx, child))

		// Re-editing the root forks a second branch.
		branch := &Node{
			SessionID: session.ID,
			ParentID:  root.ID,
			Kind:      KindEdit,
			Prompt:    "make it green",
			MIMEType:  "image/png",
			ImageData: "YnJhbmNo",
		}
		require.NoError(t, store.AddNode(ctx, branch))

		nodes, err := store.ListNodes(ctx, session.ID)
		require.NoError(t, err)
		assert.Len(t, nodes, 3)

		lineage, err := store.Lineage(ctx, child.ID)
		require.NoError(t, err)
		require.Len(t, lineage, 2)
		assert.Equal(t, root.ID, lineage[0].ID)
		assert.Equal(t, child.ID, lineage[1].ID)

		lineage, err = store.Lineage(ctx, branch.ID)
		require.NoError(t, err)
		require.Len(t, lineage, 2)
		assert.Equal(t, root.ID, lineage[0].ID)
	})

	t.Run("AddNodeValidation", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		session := &Session{Title: "v"}
		require.NoError(t, store.CreateSession(ctx, session))

		err := store.AddNode(ctx, &Node{SessionID: session.ID, Kind: KindUpload})
		assert.ErrorIs(t, err, ErrInvalidInput, "missing image payload")

		err = store.AddNode(ctx, &Node{
			SessionID: "no-such-session",
			Kind:      KindUpload,
			MIMEType:  "image/png",
			ImageData: "aW1n",
		})
		assert.ErrorIs(t, err, ErrNotFound)

		err = store.AddNode(ctx, &Node{
			SessionID: session.ID,
			ParentID:  "no-such-node",
			Kind:      KindEdit,
			MIMEType:  "image/png",
			ImageData: "aW1n",
		})
		assert.ErrorIs(t, err, ErrNotFound, "dangling parent pointer")
	})

	t.Run("DeleteSessionRemovesNodes", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		session := &Session{Title: "gone"}
		require.NoError(t, store.CreateSession(ctx, session))

		node := &Node{
			SessionID: session.ID,
			Kind:      KindUpload,
			MIMEType:  "image/jpeg",
			ImageData: "aW1n",
		}
		require.NoError(t, store.AddNode(ctx, node))
		require.NoError(t, store.DeleteSession(ctx, session.ID))

		_, err := store.GetNode(ctx, node.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		return NewMemoryStore()
	})
}

func TestGormStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		store, err := OpenSQLite(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		return store
	})
}

func TestNode_Image(t *testing.T) {
	n := &Node{MIMEType: "image/png", ImageData: "aW1n"}
	blob := n.Image()
	assert.Equal(t, "image/png", blob.MIMEType)
	assert.Equal(t, "data:image/png;base64,aW1n", blob.DataURL())
}
