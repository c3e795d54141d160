package packet

// Client → server opcodes.
const (
	C_HELLO  byte = 0x01 // connection payload: player id, name, build tag, password
	C_ACTION byte = 0x02 // ability activation request with target hints
	C_CANCEL byte = 0x03 // cancel the active action instance
	C_BYE    byte = 0x04 // user-initiated disconnect
)

// Server → client opcodes.
const (
	S_WELCOME     byte = 0x81 // approval accepted: player id + entity id
	S_REJECT      byte = 0x82 // approval rejected: reason code + message
	S_FIELDS      byte = 0x83 // batch of replicated field updates
	S_LIFESTATE   byte = 0x84 // life-state-changed notice
	S_ACTION_FAIL byte = 0x85 // action denied (cooldown); local indicator only
	S_ACTION_ANIM byte = 0x86 // animation trigger for a started action
	S_SCENE       byte = 0x87 // network-synchronized scene switch command
)
