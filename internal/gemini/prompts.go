package gemini

// VisionInstruction is the system instruction for image descriptions. The
// description is fed to another model, so it favors facts over style.
const VisionInstruction = `You describe images posted in a group chat for another assistant that cannot see them.
Describe the main subjects, any visible text (transcribed verbatim), the setting, and anything notable or funny.
Use at most five sentences. Do not speculate about the identity of real people.`

// visionPromptTemplate wraps the text of the message the image was posted with.
const visionPromptTemplate = "The image was posted with this message: %q"

// visionPromptNoText is used when the image came without text.
const visionPromptNoText = "The image was posted without any message."
