package mount

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalTable(t *testing.T) {
	t.Run("legacy document", func(t *testing.T) {
		data := []byte(`{
			"user": {
				"all": {
					"/$user/files/ext": {"id": 1, "class": "local", "options": {"datadir": "/tmp"}, "priority": 15}
				}
			},
			"group": {
				"admins": {
					"/$user/files/ext": {"id": "1", "class": "local", "options": {"datadir": "/tmp"}, "priority": "15"}
				}
			}
		}`)

		table, err := UnmarshalTable(data)
		require.NoError(t, err)
		assert.Equal(t, 2, table.Leaves())

		for _, leaf := range []StorageOptions{
			table[MountTypeUser][ApplicableAll]["/$user/files/ext"],
			table[MountTypeGroup]["admins"]["/$user/files/ext"],
		} {
			assert.Equal(t, 1, leaf.ID)
			assert.Equal(t, "local", leaf.Class)
			require.NotNil(t, leaf.Priority)
			assert.Equal(t, 15, *leaf.Priority)
		}
	})

	t.Run("empty forms", func(t *testing.T) {
		for _, input := range []string{"", "  ", "null", "[]"} {
			table, err := UnmarshalTable([]byte(input))
			require.NoError(t, err, "input %q", input)
			assert.Empty(t, table)
		}
	})

	t.Run("float id", func(t *testing.T) {
		table, err := UnmarshalTable([]byte(`{"user":{"all":{"/$user/files/a":{"id":3.0,"class":"local"}}}}`))
		require.NoError(t, err)
		assert.Equal(t, 3, table[MountTypeUser][ApplicableAll]["/$user/files/a"].ID)
	})

	t.Run("empty options array", func(t *testing.T) {
		table, err := UnmarshalTable([]byte(`{"user":{"all":{"/$user/files/a":{"id":1,"class":"local","options":[ ]}}}}`))
		require.NoError(t, err)

		leaf := table[MountTypeUser][ApplicableAll]["/$user/files/a"]
		require.NoError(t, leaf.decodeErr)
		assert.Equal(t, map[string]any{}, leaf.Options)
	})

	t.Run("empty levels as arrays", func(t *testing.T) {
		table, err := UnmarshalTable([]byte(`{"user":{"all":[]},"group":[]}`))
		require.NoError(t, err)
		assert.Zero(t, table.Leaves())
	})

	t.Run("bad leaves are kept with their error", func(t *testing.T) {
		table, err := UnmarshalTable([]byte(`{"user":{"all":{
			"/$user/files/ok": {"id": 1, "class": "local"},
			"/$user/files/bad-id": {"id": "abc", "class": "local"},
			"/$user/files/bad-options": {"id": 3, "class": "local", "options": "x"},
			"/$user/files/bad-priority": {"id": 4, "class": "local", "priority": "high"},
			"/$user/files/not-an-object": 5
		}}}`))
		require.NoError(t, err)
		assert.Equal(t, 5, table.Leaves())

		leaves := table[MountTypeUser][ApplicableAll]
		assert.NoError(t, leaves["/$user/files/ok"].decodeErr)
		assert.ErrorContains(t, leaves["/$user/files/bad-id"].decodeErr, "invalid storage id")
		assert.ErrorContains(t, leaves["/$user/files/bad-options"].decodeErr, "invalid storage options")
		assert.ErrorContains(t, leaves["/$user/files/bad-priority"].decodeErr, "invalid storage priority")
		assert.Error(t, leaves["/$user/files/not-an-object"].decodeErr)
	})

	t.Run("broken structure", func(t *testing.T) {
		_, err := UnmarshalTable([]byte(`{"user":{"all":"nope"}}`))
		assert.Error(t, err)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := UnmarshalTable([]byte(`{"user":`))
		assert.Error(t, err)
	})
}

func TestMarshalTableRoundTrip(t *testing.T) {
	table := RawMountTable{
		MountTypeUser: {
			"alice": {"/alice/files/dav": {ID: 2, Class: "dav", Options: map[string]any{"host": "dav.example.com"}}},
		},
	}

	data, err := MarshalTable(table)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"/alice/files/dav"`)
	assert.NotContains(t, string(data), "priority")

	decoded, err := UnmarshalTable(data)
	require.NoError(t, err)
	assert.Equal(t, table, decoded)

	empty, err := MarshalTable(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(empty))
}

func TestRawMountTableClone(t *testing.T) {
	table := RawMountTable{
		MountTypeUser: {
			ApplicableAll: {"/$user/files/a": {ID: 1, Class: "local", Options: map[string]any{"datadir": "/a"}, Priority: intPtr(1)}},
		},
	}

	clone := table.Clone()
	require.Equal(t, table, clone)

	leaf := clone[MountTypeUser][ApplicableAll]["/$user/files/a"]
	leaf.Options["datadir"] = "/b"
	*leaf.Priority = 2

	original := table[MountTypeUser][ApplicableAll]["/$user/files/a"]
	assert.Equal(t, "/a", original.Options["datadir"])
	assert.Equal(t, 1, *original.Priority)
}
