/*
Package openaicompat adapts the chat-completions shape to the
imaging.Provider interface. It serves api.openai.com, Azure OpenAI
deployments and the many gateways that re-expose the same wire format.

Images travel as data URLs inside content-part arrays on the way in; on the
way out the adapter detects whichever of the known response shapes the
gateway used (message.images, a data URL in message.content, or content-part
arrays) and normalizes them to imaging.ImageBlob values.
*/
package openaicompat
