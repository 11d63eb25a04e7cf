package ethereum

// chatRoomABI is the read-only subset of the ChatRoom contract.
const chatRoomABI = `[
	{"type":"function","name":"roomName","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"joinFee","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"roomCreator","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"joinedUsers","stateMutability":"view","inputs":[{"name":"","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"chatRoomTag","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]}
]`

const (
	methodRoomName    = "roomName"
	methodJoinFee     = "joinFee"
	methodRoomCreator = "roomCreator"
	methodJoinedUsers = "joinedUsers"
	methodTag         = "chatRoomTag"
)
