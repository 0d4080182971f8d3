package tree

import "errors"

var (
	ErrUnknownNodeType = errors.New("unknown node type")
	ErrNilNode         = errors.New("nil node")
	ErrDuplicateName   = errors.New("node name already in tree")
	ErrNodeNotInTree   = errors.New("parent node is not part of the tree")
)
