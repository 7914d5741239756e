package snowflake

import "github.com/bwmarrin/snowflake"

var node *snowflake.Node

func InitSnowflake(nodeId int64) {
	var err error
	node, err = snowflake.NewNode(nodeId)
	if err != nil {
		panic(err)
	}
}

// NextID returns a new cluster-unique 64-bit id. InitSnowflake must have run.
func NextID() int64 {
	return node.Generate().Int64()
}
