package badger

import (
	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"

	"github.com/poiesic/tessera/core"
	"github.com/poiesic/tessera/graph"
)

// Community records are the only graph type stored without a core serializer,
// so the MUS serializer lives here next to its keys.
var (
	communityMUS   = communitySer{}
	memberSliceMUS = ord.NewSliceSer[core.ID](core.IDMUS)
)

var _ mus.Serializer[graph.Community] = communityMUS

type communitySer struct{}

func (communitySer) Marshal(v graph.Community, bs []byte) (n int) {
	n = core.IDMUS.Marshal(v.Label, bs)
	n += memberSliceMUS.Marshal(v.EntityIds, bs[n:])
	return n
}

func (communitySer) Unmarshal(bs []byte) (v graph.Community, n int, err error) {
	var c int
	if v.Label, n, err = core.IDMUS.Unmarshal(bs); err != nil {
		return
	}
	v.EntityIds, c, err = memberSliceMUS.Unmarshal(bs[n:])
	return v, n + c, err
}

func (communitySer) Size(v graph.Community) int {
	return core.IDMUS.Size(v.Label) + memberSliceMUS.Size(v.EntityIds)
}

func (s communitySer) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return n, err
}

func marshalCommunity(community graph.Community) []byte {
	buf := make([]byte, communityMUS.Size(community))
	communityMUS.Marshal(community, buf)
	return buf
}

func unmarshalCommunity(data []byte) (graph.Community, error) {
	community, _, err := communityMUS.Unmarshal(data)
	return community, err
}
